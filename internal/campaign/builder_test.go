package campaign

import (
	"errors"
	"testing"

	"github.com/foxzi/leadflow/internal/backend"
)

func TestNewBuilderStartsWithImmediateStep(t *testing.T) {
	b := NewBuilder()

	steps := b.Steps()
	if len(steps) != 1 {
		t.Fatalf("len(Steps()) = %d, want 1", len(steps))
	}
	if steps[0].ID != 1 {
		t.Errorf("first step ID = %d, want 1", steps[0].ID)
	}
	if steps[0].DelayValue != 0 || steps[0].DelayUnit != Days {
		t.Errorf("first step delay = %d %s, want 0 days", steps[0].DelayValue, steps[0].DelayUnit)
	}
	if b.Stage() != StageInfo {
		t.Errorf("Stage() = %v, want %v", b.Stage(), StageInfo)
	}
}

func TestAddStepDefaults(t *testing.T) {
	b := NewBuilder()

	step, err := b.AddStep()
	if err != nil {
		t.Fatalf("AddStep() error = %v", err)
	}
	if step.ID != 2 {
		t.Errorf("ID = %d, want 2", step.ID)
	}
	if step.DelayValue != 1 || step.DelayUnit != Days {
		t.Errorf("delay = %d %s, want 1 days", step.DelayValue, step.DelayUnit)
	}
}

func TestRemoveStep(t *testing.T) {
	b := NewBuilder()

	if err := b.RemoveStep(1); !errors.Is(err, ErrLastStep) {
		t.Errorf("RemoveStep(last) error = %v, want ErrLastStep", err)
	}

	b.AddStep()
	b.AddStep()
	if err := b.RemoveStep(2); err != nil {
		t.Fatalf("RemoveStep(2) error = %v", err)
	}
	if err := b.RemoveStep(2); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("RemoveStep(2) again error = %v, want ErrStepNotFound", err)
	}

	// Ids are never reused after removal
	step, _ := b.AddStep()
	if step.ID != 4 {
		t.Errorf("new step ID = %d, want 4", step.ID)
	}

	var ids []int
	for _, s := range b.Steps() {
		ids = append(ids, s.ID)
	}
	want := []int{1, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestStageGates(t *testing.T) {
	b := NewBuilder()

	if err := b.Next(); !errors.Is(err, ErrStageIncomplete) {
		t.Fatalf("Next() without name error = %v, want ErrStageIncomplete", err)
	}

	b.SetInfo(Info{Name: "   "})
	if err := b.Next(); !errors.Is(err, ErrStageIncomplete) {
		t.Fatalf("Next() with blank name error = %v, want ErrStageIncomplete", err)
	}

	b.SetInfo(Info{Name: "Spring outreach"})
	if err := b.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b.Stage() != StageSteps {
		t.Fatalf("Stage() = %v, want steps", b.Stage())
	}

	step, _ := b.AddStep()
	b.UpdateStep(1, func(s *StepDraft) { s.Subject = "Hello" })
	if err := b.Next(); !errors.Is(err, ErrStageIncomplete) {
		t.Fatalf("Next() with empty second subject error = %v, want ErrStageIncomplete", err)
	}

	b.UpdateStep(step.ID, func(s *StepDraft) { s.Subject = "Following up" })
	if err := b.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b.Stage() != StageLeads {
		t.Fatalf("Stage() = %v, want leads", b.Stage())
	}
	if err := b.CanContinue(); err != nil {
		t.Errorf("CanContinue() at leads stage error = %v", err)
	}
	if err := b.Next(); err == nil {
		t.Error("Next() past last stage should fail")
	}

	b.Back()
	b.Back()
	b.Back()
	if b.Stage() != StageInfo {
		t.Errorf("Stage() after Back = %v, want info", b.Stage())
	}
}

func TestCheckReadyRequiresLeadsStage(t *testing.T) {
	b := NewBuilder()
	b.SetInfo(Info{Name: "Launch"})
	b.UpdateStep(1, func(s *StepDraft) { s.Subject = "Hi" })

	d := b.Snapshot()
	if err := d.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if err := d.CheckReady(); !errors.Is(err, ErrStageIncomplete) {
		t.Errorf("CheckReady() at info stage error = %v, want ErrStageIncomplete", err)
	}

	b.Next()
	b.Next()
	d = b.Snapshot()
	if err := d.CheckReady(); err != nil {
		t.Errorf("CheckReady() at leads stage error = %v", err)
	}
}

func TestUpdateStepKeepsID(t *testing.T) {
	b := NewBuilder()
	b.UpdateStep(1, func(s *StepDraft) {
		s.ID = 99
		s.DelayValue = -3
	})

	step := b.Steps()[0]
	if step.ID != 1 {
		t.Errorf("ID = %d, want 1", step.ID)
	}
	if step.DelayValue != 0 {
		t.Errorf("DelayValue = %d, want 0", step.DelayValue)
	}
}

func TestAddLeadsDeduplicates(t *testing.T) {
	b := NewBuilder()

	n, _ := b.AddLeads(LeadRef{ID: 1}, LeadRef{ID: 2})
	if n != 2 {
		t.Errorf("AddLeads() = %d, want 2", n)
	}
	n, _ = b.AddLeads(LeadRef{ID: 2, Name: "dup"})
	if n != 0 {
		t.Errorf("AddLeads(existing) = %d, want 0", n)
	}
	if got := len(b.Leads()); got != 2 {
		t.Errorf("len(Leads()) = %d, want 2", got)
	}

	removed, _ := b.RemoveLead(1)
	if !removed {
		t.Error("RemoveLead(1) = false, want true")
	}
	removed, _ = b.RemoveLead(1)
	if removed {
		t.Error("RemoveLead(1) twice = true, want false")
	}

	b.ClearLeads()
	if got := len(b.Leads()); got != 0 {
		t.Errorf("len(Leads()) after clear = %d, want 0", got)
	}
}

func TestSelectTemplate(t *testing.T) {
	templates := []backend.Template{
		{ID: 10, Name: "Intro", Subject: "Quick question", Body: "Hi [{{lead.first_name}}](placeholder)"},
		{ID: 11, Name: "Bump", Subject: "Bumping this", Body: "Any thoughts?"},
	}

	b := NewBuilder()
	second, _ := b.AddStep()

	if err := b.SelectTemplate(1, 10, templates); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}
	if err := b.SelectTemplate(second.ID, 11, templates); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}

	steps := b.Steps()
	if steps[0].Subject != "Quick question" || steps[0].TemplateID != 10 {
		t.Errorf("step 1 = %+v", steps[0])
	}

	// Manual edits are not re-synced to the template
	b.UpdateStep(1, func(s *StepDraft) { s.Subject = "Edited" })
	if b.Steps()[0].TemplateID != 10 {
		t.Error("manual edit should keep the template reference")
	}

	// Clearing only touches that step
	if err := b.SelectTemplate(1, 0, templates); err != nil {
		t.Fatalf("SelectTemplate(clear) error = %v", err)
	}
	steps = b.Steps()
	if steps[0].Subject != "" || steps[0].Body != "" || steps[0].TemplateID != 0 {
		t.Errorf("cleared step = %+v, want empty", steps[0])
	}
	if steps[1].Subject != "Bumping this" || steps[1].Body != "Any thoughts?" {
		t.Errorf("other step changed: %+v", steps[1])
	}

	if err := b.SelectTemplate(1, 404, templates); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("SelectTemplate(unknown) error = %v, want ErrTemplateNotFound", err)
	}
	if err := b.SelectTemplate(42, 10, templates); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("SelectTemplate(unknown step) error = %v, want ErrStepNotFound", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	b := NewBuilder()
	b.SetInfo(Info{Name: "Roundtrip", TrackEmailOpens: true})
	b.AddStep()
	b.AddStep()
	b.RemoveStep(3)
	b.AddLeads(LeadRef{ID: 5, Name: "Ada"})

	restored := Restore(b.Snapshot())
	if restored.Info().Name != "Roundtrip" {
		t.Errorf("Info().Name = %q", restored.Info().Name)
	}
	if len(restored.Steps()) != 2 {
		t.Errorf("len(Steps()) = %d, want 2", len(restored.Steps()))
	}
	step, _ := restored.AddStep()
	if step.ID != 4 {
		t.Errorf("next ID after restore = %d, want 4", step.ID)
	}
	if len(restored.Leads()) != 1 {
		t.Errorf("len(Leads()) = %d, want 1", len(restored.Leads()))
	}
}

func TestRestoreRepairsState(t *testing.T) {
	b := Restore(Draft{
		Stage: Stage(7),
		Steps: []StepDraft{{ID: 5, Subject: "x"}},
	})
	if b.Stage() != StageInfo {
		t.Errorf("Stage() = %v, want info", b.Stage())
	}
	step, _ := b.AddStep()
	if step.ID != 6 {
		t.Errorf("AddStep().ID = %d, want 6", step.ID)
	}

	empty := Restore(Draft{})
	if len(empty.Steps()) != 1 {
		t.Errorf("Restore(empty) has %d steps, want 1", len(empty.Steps()))
	}
}

func TestShowsDelay(t *testing.T) {
	if ShowsDelay(0) {
		t.Error("first step should not show delay settings")
	}
	if !ShowsDelay(1) {
		t.Error("second step should show delay settings")
	}
}
