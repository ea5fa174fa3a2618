package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/placeholder"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorError   = lipgloss.Color("#DC2626")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	activeStageStyle = lipgloss.NewStyle().
				Background(colorPrimary).
				Foreground(lipgloss.Color("#ffffff")).
				Padding(0, 1).
				Bold(true)

	stageStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
)

var stageLabels = []struct {
	stage campaign.Stage
	label string
}{
	{campaign.StageInfo, "1 Info"},
	{campaign.StageSteps, "2 Steps"},
	{campaign.StageLeads, "3 Leads"},
}

// stageBanner renders the wizard progress with the current stage highlighted
func stageBanner(current campaign.Stage) string {
	parts := make([]string, len(stageLabels))
	for i, s := range stageLabels {
		if s.stage == current {
			parts[i] = activeStageStyle.Render(s.label)
		} else {
			parts[i] = stageStyle.Render(s.label)
		}
	}
	return strings.Join(parts, mutedStyle.Render(" › "))
}

// printDraft writes a summary of d. Bodies are rendered for the terminal
// when render is set.
func printDraft(w io.Writer, id string, d campaign.Draft, render bool) {
	fmt.Fprintln(w, stageBanner(d.Stage))
	fmt.Fprintln(w)

	name := d.Info.Name
	if name == "" {
		name = "(untitled)"
	}
	fmt.Fprintln(w, titleStyle.Render(name))
	fmt.Fprintln(w, mutedStyle.Render("Draft "+shortID(id)))
	if d.Info.Description != "" {
		fmt.Fprintf(w, "  %s\n", d.Info.Description)
	}
	fmt.Fprintf(w, "  Track email opens: %s\n", yesNo(d.Info.TrackEmailOpens))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Steps (%d)", len(d.Steps))))
	for i, step := range d.Steps {
		printStep(w, i, step, render)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Leads (%d)", len(d.Leads))))
	for _, l := range d.Leads {
		fmt.Fprintf(w, "  #%d %s %s\n", l.ID, l.Name, mutedStyle.Render(l.Email))
	}

	if err := d.Check(); err != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, errorStyle.Render(err.Error()))
	}
}

func printStep(w io.Writer, position int, step campaign.StepDraft, render bool) {
	subject := step.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	fmt.Fprintf(w, "  [%d] %s\n", step.ID, subject)

	if campaign.ShowsDelay(position) {
		fmt.Fprintf(w, "      %s\n", mutedStyle.Render("wait "+campaign.FormatDelay(step.DelayValue, step.DelayUnit)))
	} else {
		fmt.Fprintf(w, "      %s\n", mutedStyle.Render("sent immediately"))
	}
	if step.TemplateID != 0 {
		fmt.Fprintf(w, "      %s\n", mutedStyle.Render(fmt.Sprintf("from template #%d", step.TemplateID)))
	}
	if vars := placeholder.Extract(step.Body); len(vars) > 0 {
		names := make([]string, len(vars))
		for i, p := range vars {
			names[i] = p.Name()
		}
		fmt.Fprintf(w, "      %s\n", mutedStyle.Render("variables: "+strings.Join(names, ", ")))
	}

	if !render || strings.TrimSpace(step.Body) == "" {
		return
	}
	out, err := placeholder.RenderTerminal(step.Body, 76)
	if err != nil {
		fmt.Fprintln(w, indent(step.Body, "      "))
		return
	}
	fmt.Fprint(w, out)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
