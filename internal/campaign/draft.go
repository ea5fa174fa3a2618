package campaign

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStageIncomplete is returned when the current wizard stage gate fails
	ErrStageIncomplete = errors.New("stage incomplete")
	// ErrLastStep is returned when removing the only remaining step
	ErrLastStep = errors.New("a campaign needs at least one step")
	// ErrStepNotFound is returned for an unknown local step id
	ErrStepNotFound = errors.New("step not found")
	// ErrTemplateNotFound is returned when a template id is not in the fetched list
	ErrTemplateNotFound = errors.New("template not found")
	// ErrSubmitInProgress is returned while a submission is already running
	ErrSubmitInProgress = errors.New("submission already in progress")
)

// Stage is a wizard stage
type Stage int

const (
	StageInfo Stage = iota
	StageSteps
	StageLeads
)

func (s Stage) String() string {
	switch s {
	case StageInfo:
		return "campaign info"
	case StageSteps:
		return "steps"
	case StageLeads:
		return "leads"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Info is the campaign metadata entered in the first stage
type Info struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	TrackEmailOpens bool   `json:"track_email_opens"`
}

// StepDraft is one email of the sequence before submission. ID is a local
// ordering key, not a backend identifier.
type StepDraft struct {
	ID         int       `json:"id"`
	TemplateID int64     `json:"template_id,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	DelayValue int       `json:"delay_value"`
	DelayUnit  DelayUnit `json:"delay_unit"`
}

// DelayHours returns the normalized delay sent to the backend
func (s StepDraft) DelayHours() int {
	return NormalizeDelay(s.DelayValue, s.DelayUnit)
}

// ShowsDelay reports whether the step at position (0-based) exposes delay
// settings. The first step is sent immediately.
func ShowsDelay(position int) bool {
	return position > 0
}

// LeadRef is a selected lead. Only ID is sent to the backend.
type LeadRef struct {
	ID      int64  `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// LeadSelection is an insertion-ordered set of leads keyed by ID
type LeadSelection struct {
	items []LeadRef
}

// Add appends leads whose IDs are not yet selected and returns how many were added
func (s *LeadSelection) Add(leads ...LeadRef) int {
	added := 0
	for _, l := range leads {
		if s.Contains(l.ID) {
			continue
		}
		s.items = append(s.items, l)
		added++
	}
	return added
}

// Remove drops one lead and reports whether it was selected
func (s *LeadSelection) Remove(id int64) bool {
	for i, l := range s.items {
		if l.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops all leads
func (s *LeadSelection) Clear() {
	s.items = nil
}

// Contains reports whether id is selected
func (s *LeadSelection) Contains(id int64) bool {
	for _, l := range s.items {
		if l.ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of selected leads
func (s *LeadSelection) Len() int {
	return len(s.items)
}

// Items returns a copy of the selection
func (s *LeadSelection) Items() []LeadRef {
	out := make([]LeadRef, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the selected lead IDs in selection order
func (s *LeadSelection) IDs() []int64 {
	ids := make([]int64, len(s.items))
	for i, l := range s.items {
		ids[i] = l.ID
	}
	return ids
}

// Draft is a serializable snapshot of the wizard state
type Draft struct {
	Stage      Stage       `json:"stage"`
	Info       Info        `json:"info"`
	Steps      []StepDraft `json:"steps"`
	NextStepID int         `json:"next_step_id"`
	Leads      []LeadRef   `json:"leads,omitempty"`
}

// CheckInfo is the gate of the first stage
func (d *Draft) CheckInfo() error {
	if strings.TrimSpace(d.Info.Name) == "" {
		return fmt.Errorf("%w: campaign name is required", ErrStageIncomplete)
	}
	return nil
}

// CheckSteps is the gate of the second stage
func (d *Draft) CheckSteps() error {
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrStageIncomplete)
	}
	for i, s := range d.Steps {
		if strings.TrimSpace(s.Subject) == "" {
			return fmt.Errorf("%w: step %d needs a subject", ErrStageIncomplete, i+1)
		}
	}
	return nil
}

// Check runs every gate a submission depends on
func (d *Draft) Check() error {
	if err := d.CheckInfo(); err != nil {
		return err
	}
	return d.CheckSteps()
}

// CheckReady reports whether the draft may be submitted: the wizard must
// have reached the leads stage and every gate must pass.
func (d *Draft) CheckReady() error {
	if d.Stage != StageLeads {
		return fmt.Errorf("%w: draft is at the %s stage, advance to leads first", ErrStageIncomplete, d.Stage)
	}
	return d.Check()
}
