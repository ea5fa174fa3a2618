// Package preview serves a local web view of stored drafts, renders markdown
// with placeholder chips and submits drafts to the backend.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/draftstore"
	"github.com/foxzi/leadflow/internal/ipfilter"
	"github.com/foxzi/leadflow/internal/metrics"
)

// Drafts is the draft storage used by the server
type Drafts interface {
	List(ctx context.Context) ([]*draftstore.Record, error)
	Get(ctx context.Context, id string) (*draftstore.Record, error)
	Find(ctx context.Context, prefix string) (*draftstore.Record, error)
	Delete(ctx context.Context, id string) error
}

// Server is the preview HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *config.PreviewConfig
	drafts     Drafts
	submitter  *campaign.Submitter
	views      *Engine
	logger     *slog.Logger
	startTime  time.Time

	mu         sync.Mutex
	submitting map[string]struct{}
}

// NewServer creates a new preview server
func NewServer(cfg *config.PreviewConfig, drafts Drafts, submitter *campaign.Submitter, logger *slog.Logger) (*Server, error) {
	views, err := NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize views: %w", err)
	}

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		drafts:     drafts,
		submitter:  submitter,
		views:      views,
		logger:     logger,
		startTime:  time.Now(),
		submitting: make(map[string]struct{}),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(ipfilter.New("preview", s.config.AllowedIPs, s.logger).Middleware)

		r.Get("/", s.handleIndex)

		r.Get("/drafts", s.handleListDrafts)
		r.Get("/drafts/{id}", s.handleDraftPage)
		r.Post("/drafts/{id}/submit", s.handleSubmit)

		r.Post("/api/render", s.handleRender)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting preview server", "addr", s.config.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down preview server")
	return s.httpServer.Shutdown(shutdownCtx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
