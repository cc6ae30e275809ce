package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promo-wizard/internal/config"
	"promo-wizard/internal/promo"
)

type Store struct {
	pool    *pgxpool.Pool
	channel string
}

const schema = `
CREATE TABLE IF NOT EXISTS promo_drafts (
	owner      TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner, key)
);
CREATE TABLE IF NOT EXISTS session_activity (
	session_id TEXT        PRIMARY KEY,
	last_seen  TIMESTAMPTZ NOT NULL
);`

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	channel := cfg.Listener.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Store{pool: pool, channel: channel}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables the service owns.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, owner, key string) (promo.Draft, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM promo_drafts WHERE owner = $1 AND key = $2`, owner, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return promo.Draft{}, false, nil
	}
	if err != nil {
		return promo.Draft{}, false, fmt.Errorf("query draft: %w", err)
	}
	var d promo.Draft
	if err := json.Unmarshal(body, &d); err != nil {
		return promo.Draft{}, false, fmt.Errorf("decode draft: %w", err)
	}
	return d, true, nil
}

func (s *Store) Save(ctx context.Context, owner, key string, d promo.Draft) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO promo_drafts (owner, key, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner, key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, owner, key, body)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, owner, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM promo_drafts WHERE owner = $1 AND key = $2`, owner, key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Touch records session activity and notifies every listening instance.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_activity (session_id, last_seen) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET last_seen = GREATEST(session_activity.last_seen, EXCLUDED.last_seen)
	`, sessionID, at.UTC())
	if err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, s.channel, EncodeActivity(sessionID, at)); err != nil {
		return fmt.Errorf("notify activity: %w", err)
	}
	return nil
}

// LastSeen returns the newest recorded activity for a session.
func (s *Store) LastSeen(ctx context.Context, sessionID string) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_seen FROM session_activity WHERE session_id = $1`, sessionID,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query activity: %w", err)
	}
	return at, true, nil
}

// Forget removes a session's activity row after logout.
func (s *Store) Forget(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_activity WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// DefaultChannel carries session activity notifications.
const DefaultChannel = "wizard_session_activity"

func (s *Store) ListenChannel() string {
	return s.channel
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}

// EncodeActivity renders a notification payload: "<session>|<unix nanos>".
func EncodeActivity(sessionID string, at time.Time) string {
	return sessionID + "|" + strconv.FormatInt(at.UnixNano(), 10)
}

func DecodeActivity(payload string) (string, time.Time, error) {
	i := strings.LastIndexByte(payload, '|')
	if i <= 0 {
		return "", time.Time{}, fmt.Errorf("malformed activity payload %q", payload)
	}
	n, err := strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed activity time: %w", err)
	}
	return payload[:i], time.Unix(0, n), nil
}
