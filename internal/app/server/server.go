// Package server assembles the wizard service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"promo-wizard/internal/api"
	"promo-wizard/internal/auth"
	"promo-wizard/internal/cache"
	"promo-wizard/internal/client"
	"promo-wizard/internal/config"
	"promo-wizard/internal/draft"
	"promo-wizard/internal/listener"
	"promo-wizard/internal/session"
	"promo-wizard/internal/storage"
	"promo-wizard/internal/wizard"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg     config.Config
	pg      *storage.Store
	drafts  draft.Repository
	watcher *session.Watcher
	api     *api.Handler
	handler http.Handler
}

// New wires storage, the REST client and the HTTP router. Without a
// Postgres host drafts and session activity live in memory.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	var activity session.ActivityStore
	if cfg.UsePostgres() {
		pg, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate storage: %w", err)
		}
		s.pg = pg
		s.drafts = pg
		activity = pg
	} else {
		log.Warn().Msg("no postgres host configured; drafts and sessions kept in memory")
		s.drafts = storage.NewMemory()
		activity = session.NewMemoryActivity()
	}

	policy := auth.DefaultPolicy()
	if cfg.Auth.PolicyFile != "" {
		p, err := auth.LoadPolicy(cfg.Auth.PolicyFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		policy = p
	}

	rest := client.New(cfg.Upstream.BaseURL, cfg.UpstreamTimeout())
	s.watcher = session.NewWatcher(activity, cfg.IdleTimeout(), cfg.PollInterval())
	h := api.NewHandler(api.Deps{
		Service:  wizard.NewService(rest),
		Drafts:   s.drafts,
		DraftKey: cfg.Wizard.DraftKey,
		Options:  wizard.NewOptions(rest),
		Source:   rest,
		Labels:   cache.NewLabels(),
		Watcher:  s.watcher,
		Restrict: cfg.Wizard.RestrictNavigation,
		Secure:   cfg.Auth.Secure,
	})
	s.api = h
	s.handler = api.Router(h, policy, auth.NewResolver(cfg.Auth.JWTSecret))
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Drafts is the repository drafts are persisted to.
func (s *Server) Drafts() draft.Repository { return s.drafts }

// Run serves HTTP and the background watchers until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.watcher.Run(gctx)
		return nil
	})
	release := s.api.ReleaseExpired()
	g.Go(func() error {
		release(gctx)
		return nil
	})
	if s.pg != nil {
		g.Go(func() error {
			listener.ListenActivity(gctx, s.pg, s.watcher, s.cfg.Listener.Channel, s.cfg.Backoff())
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", s.cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown...")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})
	return g.Wait()
}

func (s *Server) Close() {
	if s.pg != nil {
		s.pg.Close()
	}
}
