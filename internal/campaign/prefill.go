package campaign

import (
	"fmt"

	"github.com/foxzi/leadflow/internal/backend"
)

// SelectTemplate copies a template's subject and body into one step. The
// template is looked up in the already fetched list. templateID 0 clears the
// selection along with subject and body. Later edits are not synced back.
func (b *Builder) SelectTemplate(stepID int, templateID int64, templates []backend.Template) error {
	if templateID == 0 {
		return b.UpdateStep(stepID, func(s *StepDraft) {
			s.TemplateID = 0
			s.Subject = ""
			s.Body = ""
		})
	}

	tmpl, ok := findTemplate(templates, templateID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrTemplateNotFound, templateID)
	}

	return b.UpdateStep(stepID, func(s *StepDraft) {
		s.TemplateID = tmpl.ID
		s.Subject = tmpl.Subject
		s.Body = tmpl.Body
	})
}

func findTemplate(templates []backend.Template, id int64) (backend.Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return backend.Template{}, false
}
