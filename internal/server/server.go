// Package server exposes matching over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/catalog"
	"github.com/spigell/skill-matcher/internal/filtering"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Options configures how the server computes assignments.
type Options struct {
	MaxCardinality bool
	Timeout        time.Duration
	Filters        filtering.Config
}

type Server struct {
	store  *catalog.Store
	opts   Options
	logger *zap.Logger
}

func New(store *catalog.Store, opts Options, log *zap.Logger) *Server {
	return &Server{store: store, opts: opts, logger: logger.OrNop(log)}
}

// Router configures all routes and middleware.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Get("/healthz", s.health)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.getCatalog)
		r.Get("/assignments", s.listAssignments)
		r.Get("/assignments/{entity}", s.getAssignment)
		r.Post("/match", s.match)
	})

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}
