package backend

import "time"

// Campaign statuses
const (
	CampaignStatusDraft = "draft"
)

// Step types
const (
	StepTypeEmail = "email"
)

// Bulk lead actions
const (
	BulkActionAdd    = "add"
	BulkActionRemove = "remove"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// CampaignCreateRequest is the body of POST /campaigns
type CampaignCreateRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	TrackEmailOpens bool   `json:"trackEmailOpens"`
	Status          string `json:"status"`
}

// Campaign represents a persisted campaign
type Campaign struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	TrackEmailOpens bool       `json:"track_email_opens"`
	LeadsCount      int        `json:"leads_count,omitempty"`
	StepsCount      int        `json:"steps_count,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// StepCreateRequest is the body of POST /campaigns/{id}/steps
type StepCreateRequest struct {
	StepOrder  int    `json:"step_order"`
	Type       string `json:"type"`
	DelayHours int    `json:"delay_hours"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Step represents a persisted campaign step
type Step struct {
	ID         int64  `json:"id"`
	CampaignID int64  `json:"campaign_id,omitempty"`
	StepOrder  int    `json:"step_order"`
	Type       string `json:"type"`
	DelayHours int    `json:"delay_hours"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// BulkLeadsRequest is the body of POST /campaigns/{id}/campaign-leads/bulk
type BulkLeadsRequest struct {
	Action  string  `json:"action"`
	LeadIDs []int64 `json:"lead_ids"`
}

// BulkLeadsResponse summarizes a bulk lead operation
type BulkLeadsResponse struct {
	Message string `json:"message"`
	Added   int    `json:"added,omitempty"`
	Skipped int    `json:"skipped,omitempty"`
}

// Template represents an email template
type Template struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TemplateRequest is the body of template create and update calls
type TemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Lead represents a saved lead. Only ID matters to campaign building, the
// rest is for display.
type Lead struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`
	Location  string `json:"location,omitempty"`
}

// DisplayName returns the best human-readable name for the lead
func (l Lead) DisplayName() string {
	name := l.FirstName
	if l.LastName != "" {
		if name != "" {
			name += " "
		}
		name += l.LastName
	}
	if name == "" {
		name = l.Email
	}
	return name
}

// EnhanceRequest is the body of POST /ai/enhance
type EnhanceRequest struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Instruction string `json:"instruction,omitempty"`
}

// EnhanceResponse is the rewritten content
type EnhanceResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
