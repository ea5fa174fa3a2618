package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/draftstore"
	"github.com/foxzi/leadflow/internal/placeholder"
)

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error        string `json:"error"`
	Stage        string `json:"stage,omitempty"`
	CampaignID   int64  `json:"campaign_id,omitempty"`
	StepsCreated int    `json:"steps_created,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// DraftSummary is one entry of GET /drafts
type DraftSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	Steps     int       `json:"steps"`
	Leads     int       `json:"leads"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RenderRequest is the body of POST /api/render
type RenderRequest struct {
	Markdown string `json:"markdown"`
}

// RenderResponse is returned by POST /api/render
type RenderResponse struct {
	HTML         string   `json:"html"`
	Placeholders []string `json:"placeholders"`
}

// SubmitResponse is returned by a successful POST /drafts/{id}/submit
type SubmitResponse struct {
	CampaignID    int64  `json:"campaign_id"`
	Name          string `json:"name"`
	StepsCreated  int    `json:"steps_created"`
	LeadsAttached int    `json:"leads_attached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	records, err := s.drafts.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list drafts", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list drafts")
		return
	}

	out := make([]DraftSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarize(rec))
	}
	s.sendJSON(w, http.StatusOK, out)
}

func summarize(rec *draftstore.Record) DraftSummary {
	return DraftSummary{
		ID:        rec.ID,
		Name:      rec.Draft.Info.Name,
		Stage:     rec.Draft.Stage.String(),
		Steps:     len(rec.Draft.Steps),
		Leads:     len(rec.Draft.Leads),
		UpdatedAt: rec.UpdatedAt,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	records, err := s.drafts.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list drafts", "error", err)
		http.Error(w, "Failed to list drafts", http.StatusInternalServerError)
		return
	}

	summaries := make([]DraftSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}
	s.render(w, "index", map[string]any{"Drafts": summaries})
}

// stepView is a step prepared for the draft page
type stepView struct {
	Position     int
	Subject      string
	BodyHTML     template.HTML
	ShowsDelay   bool
	Delay        string
	DelayHours   int
	Placeholders []string
}

func (s *Server) handleDraftPage(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.findDraft(w, r)
	if !ok {
		return
	}

	steps := make([]stepView, 0, len(rec.Draft.Steps))
	for i, step := range rec.Draft.Steps {
		html, err := placeholder.RenderHTML(step.Body)
		if err != nil {
			s.logger.Error("failed to render step body", "draft", rec.ID, "step", step.ID, "error", err)
			http.Error(w, "Failed to render draft", http.StatusInternalServerError)
			return
		}
		steps = append(steps, stepView{
			Position:     i + 1,
			Subject:      step.Subject,
			BodyHTML:     template.HTML(html),
			ShowsDelay:   campaign.ShowsDelay(i),
			Delay:        campaign.FormatDelay(step.DelayValue, step.DelayUnit),
			DelayHours:   step.DelayHours(),
			Placeholders: names(placeholder.Extract(step.Body)),
		})
	}

	s.render(w, "draft", map[string]any{
		"ID":     rec.ID,
		"Info":   rec.Draft.Info,
		"Stage":  rec.Draft.Stage.String(),
		"Steps":  steps,
		"Leads":  rec.Draft.Leads,
		"Ready":  rec.Draft.CheckReady() == nil,
		"Issues": draftIssue(rec.Draft),
	})
}

func draftIssue(d campaign.Draft) string {
	if err := d.CheckReady(); err != nil {
		return err.Error()
	}
	return ""
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	html, err := placeholder.RenderHTML(req.Markdown)
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.sendJSON(w, http.StatusOK, RenderResponse{
		HTML:         html,
		Placeholders: names(placeholder.Extract(req.Markdown)),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	found, ok := s.findDraft(w, r)
	if !ok {
		return
	}
	id := found.ID

	s.mu.Lock()
	if _, busy := s.submitting[id]; busy {
		s.mu.Unlock()
		s.sendError(w, http.StatusConflict, "Submission already in progress")
		return
	}
	s.submitting[id] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.submitting, id)
		s.mu.Unlock()
	}()

	// Reload under the claim: an earlier submission may have finished and
	// deleted the draft after findDraft read it.
	rec, err := s.drafts.Get(r.Context(), id)
	if errors.Is(err, draftstore.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "Draft not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to reload draft", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load draft")
		return
	}

	if err := rec.Draft.CheckReady(); err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b := campaign.Restore(rec.Draft)

	// Once started the sequence runs to completion even if the client leaves
	ctx := context.WithoutCancel(r.Context())

	result, err := b.Submit(ctx, s.submitter)
	if err != nil {
		s.sendSubmitError(w, err)
		return
	}

	// Submitted drafts are not kept
	if err := s.drafts.Delete(ctx, rec.ID); err != nil {
		s.logger.Warn("failed to delete submitted draft", "draft", rec.ID, "error", err)
	}

	s.sendJSON(w, http.StatusCreated, SubmitResponse{
		CampaignID:    result.Campaign.ID,
		Name:          result.Campaign.Name,
		StepsCreated:  len(result.Steps),
		LeadsAttached: result.LeadsAttached,
	})
}

func (s *Server) sendSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, campaign.ErrStageIncomplete) {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if errors.Is(err, campaign.ErrSubmitInProgress) {
		s.sendError(w, http.StatusConflict, "Submission already in progress")
		return
	}

	var submitErr *campaign.SubmitError
	if errors.As(err, &submitErr) {
		s.sendJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:        submitErr.UserMessage(),
			Stage:        string(submitErr.Stage),
			CampaignID:   submitErr.CampaignID,
			StepsCreated: submitErr.StepsCreated,
		})
		return
	}

	s.sendError(w, http.StatusBadGateway, backend.UserMessage(err, "Failed to create campaign"))
}

func (s *Server) findDraft(w http.ResponseWriter, r *http.Request) (*draftstore.Record, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.drafts.Find(r.Context(), id)
	switch {
	case errors.Is(err, draftstore.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "Draft not found")
		return nil, false
	case errors.Is(err, draftstore.ErrAmbiguous):
		s.sendError(w, http.StatusBadRequest, err.Error())
		return nil, false
	case err != nil:
		s.logger.Error("failed to load draft", "id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to load draft")
		return nil, false
	}
	return rec, true
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func names(ps []placeholder.Placeholder) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
