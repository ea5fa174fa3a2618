package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/metrics"
)

// Backend is the part of the REST backend a submission needs
type Backend interface {
	CreateCampaign(ctx context.Context, req *backend.CampaignCreateRequest) (*backend.Campaign, error)
	CreateStep(ctx context.Context, campaignID int64, req *backend.StepCreateRequest) (*backend.Step, error)
	BulkLeads(ctx context.Context, campaignID int64, req *backend.BulkLeadsRequest) (*backend.BulkLeadsResponse, error)
}

// SubmitStage names the call a submission failed in
type SubmitStage string

const (
	SubmitCampaign SubmitStage = "campaign"
	SubmitStep     SubmitStage = "step"
	SubmitLeads    SubmitStage = "leads"
)

// SubmitError reports where a submission stopped. Calls that completed
// before the failure are not rolled back, so CampaignID and StepsCreated
// describe what exists on the backend.
type SubmitError struct {
	Stage        SubmitStage
	CampaignID   int64 // 0 when the campaign itself was not created
	StepPosition int   // 1-based, only for SubmitStep
	StepsCreated int
	Err          error
}

func (e *SubmitError) Error() string {
	switch e.Stage {
	case SubmitStep:
		return fmt.Sprintf("create step %d of campaign %d: %v", e.StepPosition, e.CampaignID, e.Err)
	case SubmitLeads:
		return fmt.Sprintf("attach leads to campaign %d: %v", e.CampaignID, e.Err)
	}
	return fmt.Sprintf("create campaign: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// UserMessage is the single notification shown for the failure
func (e *SubmitError) UserMessage() string {
	return backend.UserMessage(e.Err, "Failed to create campaign")
}

// Result describes a completed submission
type Result struct {
	Campaign      *backend.Campaign
	Steps         []*backend.Step
	LeadsAttached int
	LeadsSummary  *backend.BulkLeadsResponse
}

// Submitter turns a draft into backend records: the campaign, then each
// step in order, then one bulk lead attachment.
type Submitter struct {
	backend Backend
	logger  *slog.Logger
}

// NewSubmitter creates a submitter
func NewSubmitter(b Backend, logger *slog.Logger) *Submitter {
	return &Submitter{backend: b, logger: logger}
}

// CampaignRequest builds the campaign creation payload
func CampaignRequest(info Info) *backend.CampaignCreateRequest {
	return &backend.CampaignCreateRequest{
		Name:            info.Name,
		Description:     info.Description,
		TrackEmailOpens: info.TrackEmailOpens,
		Status:          backend.CampaignStatusDraft,
	}
}

// StepRequests builds step payloads in sequence order. step_order is the
// 1-based position, so removing a middle step never leaves gaps or
// duplicates. Without removals it equals the local step id. The first
// position is always sent with delay 0, whatever the step carries.
func StepRequests(steps []StepDraft) []*backend.StepCreateRequest {
	reqs := make([]*backend.StepCreateRequest, len(steps))
	for i, s := range steps {
		delay := 0
		if ShowsDelay(i) {
			delay = s.DelayHours()
		}
		reqs[i] = &backend.StepCreateRequest{
			StepOrder:  i + 1,
			Type:       backend.StepTypeEmail,
			DelayHours: delay,
			Subject:    s.Subject,
			Body:       s.Body,
		}
	}
	return reqs
}

// Submit creates everything sequentially and stops at the first failure.
// Each call waits for the previous one, so a failure leaves a prefix of the
// sequence on the backend and never reorders steps.
func (s *Submitter) Submit(ctx context.Context, d Draft) (*Result, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}

	result, err := s.submit(ctx, d)
	if err != nil {
		metrics.IncSubmissions(metrics.OutcomeFailed)
		s.logger.Error("campaign submission failed", "error", err)
		return result, err
	}

	metrics.IncSubmissions(metrics.OutcomeSuccess)
	s.logger.Info("campaign submitted",
		"campaign_id", result.Campaign.ID,
		"steps", len(result.Steps),
		"leads", result.LeadsAttached,
	)
	return result, nil
}

func (s *Submitter) submit(ctx context.Context, d Draft) (*Result, error) {
	result := &Result{}

	campaign, err := s.backend.CreateCampaign(ctx, CampaignRequest(d.Info))
	if err != nil {
		return nil, &SubmitError{Stage: SubmitCampaign, Err: err}
	}
	result.Campaign = campaign
	s.logger.Debug("campaign created", "campaign_id", campaign.ID)

	for i, req := range StepRequests(d.Steps) {
		step, err := s.backend.CreateStep(ctx, campaign.ID, req)
		if err != nil {
			return result, &SubmitError{
				Stage:        SubmitStep,
				CampaignID:   campaign.ID,
				StepPosition: i + 1,
				StepsCreated: len(result.Steps),
				Err:          err,
			}
		}
		metrics.IncStepsCreated()
		result.Steps = append(result.Steps, step)
		s.logger.Debug("step created",
			"campaign_id", campaign.ID,
			"step_order", req.StepOrder,
			"delay_hours", req.DelayHours,
		)
	}

	if len(d.Leads) == 0 {
		return result, nil
	}

	var selection LeadSelection
	selection.Add(d.Leads...)
	ids := selection.IDs()
	summary, err := s.backend.BulkLeads(ctx, campaign.ID, &backend.BulkLeadsRequest{
		Action:  backend.BulkActionAdd,
		LeadIDs: ids,
	})
	if err != nil {
		return result, &SubmitError{
			Stage:        SubmitLeads,
			CampaignID:   campaign.ID,
			StepsCreated: len(result.Steps),
			Err:          err,
		}
	}
	metrics.AddLeadsAttached(len(ids))
	result.LeadsAttached = len(ids)
	result.LeadsSummary = summary

	return result, nil
}
