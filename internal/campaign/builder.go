package campaign

import (
	"context"
	"fmt"
	"sync"

	"github.com/foxzi/leadflow/internal/backend"
)

// Default delay of steps added after the first one
const (
	DefaultDelayValue = 1
	DefaultDelayUnit  = Days
)

// Builder holds the state of the three-stage campaign wizard:
// campaign info, then steps, then leads. It is safe for concurrent use.
type Builder struct {
	mu         sync.Mutex
	stage      Stage
	info       Info
	steps      []StepDraft
	nextStepID int
	leads      LeadSelection
	inFlight   bool
}

// NewBuilder returns a wizard with one immediate step
func NewBuilder() *Builder {
	b := &Builder{nextStepID: 1}
	b.appendStep()
	return b
}

// Restore rebuilds a wizard from a snapshot
func Restore(d Draft) *Builder {
	b := &Builder{
		stage:      d.Stage,
		info:       d.Info,
		steps:      append([]StepDraft(nil), d.Steps...),
		nextStepID: d.NextStepID,
	}
	b.leads.Add(d.Leads...)

	// Never hand out an id that is already in use
	for _, s := range b.steps {
		if s.ID >= b.nextStepID {
			b.nextStepID = s.ID + 1
		}
	}
	if b.nextStepID < 1 {
		b.nextStepID = 1
	}
	if len(b.steps) == 0 {
		b.appendStep()
	}
	if b.stage < StageInfo || b.stage > StageLeads {
		b.stage = StageInfo
	}
	return b
}

// Snapshot returns a serializable copy of the current state
func (b *Builder) Snapshot() Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Builder) snapshotLocked() Draft {
	return Draft{
		Stage:      b.stage,
		Info:       b.info,
		Steps:      append([]StepDraft(nil), b.steps...),
		NextStepID: b.nextStepID,
		Leads:      b.leads.Items(),
	}
}

// Stage returns the current wizard stage
func (b *Builder) Stage() Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stage
}

// CanContinue returns nil when the current stage gate passes
func (b *Builder) CanContinue() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gateLocked()
}

func (b *Builder) gateLocked() error {
	d := b.snapshotLocked()
	switch b.stage {
	case StageInfo:
		return d.CheckInfo()
	case StageSteps:
		return d.CheckSteps()
	}
	return nil
}

// Next advances to the following stage if the current gate passes
func (b *Builder) Next() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight {
		return ErrSubmitInProgress
	}
	if b.stage == StageLeads {
		return fmt.Errorf("already at the last stage")
	}
	if err := b.gateLocked(); err != nil {
		return err
	}
	b.stage++
	return nil
}

// Back returns to the previous stage
func (b *Builder) Back() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stage > StageInfo && !b.inFlight {
		b.stage--
	}
}

// Info returns the campaign metadata
func (b *Builder) Info() Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// SetInfo replaces the campaign metadata
func (b *Builder) SetInfo(info Info) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrSubmitInProgress
	}
	b.info = info
	return nil
}

// Steps returns a copy of the step sequence in order
func (b *Builder) Steps() []StepDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StepDraft(nil), b.steps...)
}

// AddStep appends a step and returns it. The first step defaults to an
// immediate send, later ones to DefaultDelayValue DefaultDelayUnit.
func (b *Builder) AddStep() (StepDraft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return StepDraft{}, ErrSubmitInProgress
	}
	return b.appendStep(), nil
}

func (b *Builder) appendStep() StepDraft {
	step := StepDraft{
		ID:         b.nextStepID,
		DelayValue: DefaultDelayValue,
		DelayUnit:  DefaultDelayUnit,
	}
	if len(b.steps) == 0 {
		step.DelayValue = 0
	}
	b.nextStepID++
	b.steps = append(b.steps, step)
	return step
}

// RemoveStep deletes a step. The last remaining step cannot be removed.
func (b *Builder) RemoveStep(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrSubmitInProgress
	}

	idx := b.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrStepNotFound, id)
	}
	if len(b.steps) == 1 {
		return ErrLastStep
	}
	b.steps = append(b.steps[:idx], b.steps[idx+1:]...)
	return nil
}

// UpdateStep applies fn to the step with the given id. fn must not change ID.
func (b *Builder) UpdateStep(id int, fn func(*StepDraft)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrSubmitInProgress
	}

	idx := b.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrStepNotFound, id)
	}
	fn(&b.steps[idx])
	b.steps[idx].ID = id
	if b.steps[idx].DelayValue < 0 {
		b.steps[idx].DelayValue = 0
	}
	return nil
}

// SetDelay sets a step's delay
func (b *Builder) SetDelay(id, value int, unit DelayUnit) error {
	return b.UpdateStep(id, func(s *StepDraft) {
		s.DelayValue = value
		s.DelayUnit = unit
	})
}

func (b *Builder) indexLocked(id int) int {
	for i, s := range b.steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// AddLeads selects leads, skipping ones already selected, and returns how many were added
func (b *Builder) AddLeads(leads ...LeadRef) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return 0, ErrSubmitInProgress
	}
	return b.leads.Add(leads...), nil
}

// RemoveLead deselects one lead
func (b *Builder) RemoveLead(id int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return false, ErrSubmitInProgress
	}
	return b.leads.Remove(id), nil
}

// ClearLeads deselects every lead
func (b *Builder) ClearLeads() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return ErrSubmitInProgress
	}
	b.leads.Clear()
	return nil
}

// Leads returns the selected leads
func (b *Builder) Leads() []LeadRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leads.Items()
}

// Submitting reports whether a submission is running
func (b *Builder) Submitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Submit runs the submission with s. Edits and a second Submit are refused
// until it returns.
func (b *Builder) Submit(ctx context.Context, s *Submitter) (*Result, error) {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	b.inFlight = true
	draft := b.snapshotLocked()
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	return s.Submit(ctx, draft)
}

// LeadFromBackend converts a saved lead into a selection entry
func LeadFromBackend(l backend.Lead) LeadRef {
	return LeadRef{
		ID:      l.ID,
		Name:    l.DisplayName(),
		Email:   l.Email,
		Company: l.Company,
	}
}
