// Package enhance rewrites step content with an AI provider while keeping
// placeholder tokens intact.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/config"
	"github.com/foxzi/leadflow/internal/metrics"
	"github.com/foxzi/leadflow/internal/placeholder"
)

// ErrPlaceholdersLost is returned when a rewrite drops a placeholder token
var ErrPlaceholdersLost = errors.New("rewrite dropped placeholders")

// Request is the content to rewrite
type Request struct {
	Subject     string
	Body        string
	Instruction string
}

// Result is the rewritten content
type Result struct {
	Subject string
	Body    string
}

// rewriter performs the provider call on protected text
type rewriter interface {
	rewrite(ctx context.Context, req Request) (Result, error)
}

// Service enhances content through one provider
type Service struct {
	provider string
	rw       rewriter
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Service for the provider selected in cfg
func New(ctx context.Context, cfg config.AIConfig, client *backend.Client, logger *slog.Logger) (*Service, error) {
	logger = logger.With("component", "enhance", "provider", cfg.Provider)

	switch cfg.Provider {
	case config.ProviderBackend, "":
		return newService(config.ProviderBackend, &backendRewriter{api: client}, cfg.Timeout, logger), nil
	case config.ProviderGemini:
		rw, err := newGeminiRewriter(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return newService(config.ProviderGemini, rw, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
}

func newService(provider string, rw rewriter, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{provider: provider, rw: rw, timeout: timeout, logger: logger}
}

// Provider returns the provider name
func (s *Service) Provider() string {
	return s.provider
}

// Enhance rewrites req. Placeholders are swapped for opaque markers before
// the provider sees the text and restored afterwards; a result missing any
// of the original placeholders is rejected with ErrPlaceholdersLost.
func (s *Service) Enhance(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("nothing to enhance: subject and body are empty")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	subject, subjectMarkers := placeholder.Protect(req.Subject)
	body, bodyMarkers := placeholder.Protect(req.Body)

	start := time.Now()
	out, err := s.rw.rewrite(ctx, Request{
		Subject:     subject,
		Body:        body,
		Instruction: req.Instruction,
	})
	if err != nil {
		metrics.IncEnhancements(s.provider, metrics.OutcomeFailed)
		s.logger.Error("enhancement failed", "error", err)
		return nil, fmt.Errorf("failed to enhance content: %w", err)
	}

	result := &Result{
		Subject: placeholder.Restore(out.Subject, subjectMarkers),
		Body:    placeholder.Restore(out.Body, bodyMarkers),
	}
	// Providers may leave a part they were not asked to change empty
	if strings.TrimSpace(result.Subject) == "" {
		result.Subject = req.Subject
	}
	if strings.TrimSpace(result.Body) == "" {
		result.Body = req.Body
	}

	lost := append(placeholder.Missing(req.Subject, result.Subject), placeholder.Missing(req.Body, result.Body)...)
	if len(lost) > 0 {
		names := make([]string, len(lost))
		for i, p := range lost {
			names[i] = p.Name()
		}
		metrics.IncEnhancements(s.provider, "rejected")
		s.logger.Warn("enhancement dropped placeholders", "placeholders", names)
		return nil, fmt.Errorf("%w: %s", ErrPlaceholdersLost, strings.Join(names, ", "))
	}

	metrics.IncEnhancements(s.provider, metrics.OutcomeSuccess)
	s.logger.Debug("content enhanced", "duration", time.Since(start))
	return result, nil
}

// BackendAPI is the part of the backend client used for enhancement
type BackendAPI interface {
	Enhance(ctx context.Context, req *backend.EnhanceRequest) (*backend.EnhanceResponse, error)
}

type backendRewriter struct {
	api BackendAPI
}

func (r *backendRewriter) rewrite(ctx context.Context, req Request) (Result, error) {
	resp, err := r.api.Enhance(ctx, &backend.EnhanceRequest{
		Subject:     req.Subject,
		Body:        req.Body,
		Instruction: req.Instruction,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Subject: resp.Subject, Body: resp.Body}, nil
}
