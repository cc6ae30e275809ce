// Package listener relays session-activity notifications from Postgres to
// the local idle watcher so every instance sees activity from its peers.
package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"promo-wizard/internal/storage"
)

// Observer receives activity seen by other instances.
type Observer interface {
	Observe(sessionID string, at time.Time)
}

// ListenActivity blocks until ctx is done, reconnecting with jittered backoff.
func ListenActivity(ctx context.Context, st *storage.Store, obs Observer, channel string, baseBackoff time.Duration) {
	if channel == "" {
		channel = st.ListenChannel()
	}
	for {
		err := listenOnce(ctx, st, obs, channel)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		backoff := jitter(baseBackoff)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("listen error")
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func listenOnce(ctx context.Context, st *storage.Store, obs Observer, channel string) error {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for session activity")

	for {
		ntf, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		relay(obs, ntf.Payload)
	}
}

func relay(obs Observer, payload string) {
	id, at, err := storage.DecodeActivity(payload)
	if err != nil {
		log.Warn().Err(err).Str("payload", payload).Msg("bad activity notification")
		return
	}
	obs.Observe(id, at)
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64()
	return time.Duration(float64(base) * factor)
}
