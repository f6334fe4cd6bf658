// Package serve exposes the reasoning pipeline over HTTP with run
// persistence and live event streaming.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	deepthink "github.com/everydev1618/godeepthink"
	"github.com/everydev1618/godeepthink/llm"
	"github.com/everydev1618/godeepthink/search"
)

// Server hosts the HTTP API around a pipeline.
type Server struct {
	pipeline *deepthink.Pipeline
	store    Store
	broker   *Broker
	logger   *slog.Logger
	http     *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*serverSettings)

type serverSettings struct {
	store    Store
	provider search.Provider
	logger   *slog.Logger
}

// WithStore sets the run store. Default is a JSON store under
// ./deepthink-runs.
func WithStore(s Store) ServerOption {
	return func(cfg *serverSettings) { cfg.store = s }
}

// WithSearchProvider enables the research stage.
func WithSearchProvider(p search.Provider) ServerOption {
	return func(cfg *serverSettings) { cfg.provider = p }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(cfg *serverSettings) { cfg.logger = l }
}

// NewServer builds a server over the given backend and config.
func NewServer(backend llm.LLM, cfg deepthink.Config, addr string, opts ...ServerOption) (*Server, error) {
	settings := serverSettings{
		store:  NewJSONStore("deepthink-runs"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	broker := NewBroker()

	pipeOpts := []deepthink.PipelineOption{
		deepthink.WithEventSink(broker),
		deepthink.WithLogger(settings.logger),
	}
	if settings.provider != nil {
		pipeOpts = append(pipeOpts, deepthink.WithSearchProvider(settings.provider))
	}

	pipeline, err := deepthink.NewPipeline(backend, cfg, pipeOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	s := &Server{
		pipeline: pipeline,
		store:    settings.store,
		broker:   broker,
		logger:   settings.logger.With("component", "server"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/deepthink", s.handleThink)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// ListenAndServe initializes the store and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.store.Init(ctx); err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	defer s.store.Close()
	defer s.broker.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	}
}
