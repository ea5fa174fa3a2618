package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/draftstore"
	"github.com/foxzi/leadflow/internal/metrics"
	"github.com/foxzi/leadflow/internal/preview"
)

// App is the long-running serve mode: the preview server and, when enabled,
// the metrics server.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	drafts        *draftstore.Store
	preview       *preview.Server
	metricsServer *metrics.Server
}

// New creates a new application
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metrics.SetGlobal(m)
	}

	drafts, err := draftstore.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft storage: %w", err)
	}

	client := NewClient(cfg)
	submitter := campaign.NewSubmitter(client, logger.With("component", "submitter"))

	previewServer, err := preview.NewServer(&cfg.Preview, drafts, submitter, logger.With("component", "preview"))
	if err != nil {
		drafts.Close()
		return nil, err
	}

	a := &App{
		config:  cfg,
		logger:  logger,
		drafts:  drafts,
		preview: previewServer,
	}

	if m != nil {
		a.metricsServer = metrics.NewServer(m,
			cfg.Metrics.ListenAddr,
			cfg.Metrics.Path,
			cfg.Metrics.AllowedIPs,
			logger.With("component", "metrics"),
		)
	}

	return a, nil
}

// NewClient creates the backend client described by cfg
func NewClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token,
		backend.WithTimeout(cfg.Backend.Timeout),
	)
}

// Run runs all servers until ctx is cancelled, SIGINT/SIGTERM is received or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting leadflow",
		"backend", a.config.Backend.BaseURL,
		"preview_addr", a.config.Preview.ListenAddr,
		"metrics_enabled", a.metricsServer != nil,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.preview.Run(ctx); err != nil {
			return fmt.Errorf("preview server: %w", err)
		}
		return nil
	})
	if a.metricsServer != nil {
		g.Go(func() error {
			if err := a.metricsServer.Run(ctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if cerr := a.drafts.Close(); cerr != nil {
		a.logger.Error("storage close error", "error", cerr)
	}
	a.logger.Info("shutdown complete")
	return err
}

// SetupLogger builds the logger described by cfg, writing to w
func SetupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
