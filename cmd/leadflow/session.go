package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/foxzi/leadflow/internal/app"
	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/draftstore"
)

// session bundles what a single command invocation needs
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	client *backend.Client
	store  *draftstore.Store
}

// openSession loads the config and, when withStore is set, opens the draft
// store. The returned cleanup must always be called.
func openSession(withStore bool) (*session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	// Command output goes to stdout, logs to stderr
	s := &session{
		cfg:    cfg,
		logger: app.SetupLogger(cfg.Logging, os.Stderr),
		client: app.NewClient(cfg),
	}

	if !withStore {
		return s, func() {}, nil
	}

	s.store, err = draftstore.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open draft storage: %w", err)
	}
	return s, func() { s.store.Close() }, nil
}

// currentDraft loads the selected draft as a builder
func (s *session) currentDraft(ctx context.Context) (*draftstore.Record, *campaign.Builder, error) {
	rec, err := s.store.Current(ctx)
	if errors.Is(err, draftstore.ErrNoCurrent) {
		return nil, nil, fmt.Errorf("no current draft (start one with leadflow draft new)")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return rec, campaign.Restore(rec.Draft), nil
}

// saveDraft stores the builder state back into rec
func (s *session) saveDraft(ctx context.Context, rec *draftstore.Record, b *campaign.Builder) error {
	rec.Draft = b.Snapshot()
	if err := s.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// editDraft loads the current draft, applies fn and saves the result
func (s *session) editDraft(ctx context.Context, fn func(b *campaign.Builder) error) (*campaign.Builder, error) {
	rec, b, err := s.currentDraft(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.saveDraft(ctx, rec, b); err != nil {
		return nil, err
	}
	return b, nil
}

// apiError turns a backend error into the message shown to the user
func apiError(err error, fallback string) error {
	if backend.IsUnauthorized(err) {
		return fmt.Errorf("%s: not authorized (check backend.token or %s)", fallback, config.EnvAPIToken)
	}
	return fmt.Errorf("%s: %s", fallback, backend.UserMessage(err, err.Error()))
}
