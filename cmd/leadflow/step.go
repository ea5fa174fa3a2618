package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/placeholder"
)

var (
	stepSubject  string
	stepBody     string
	stepBodyFile string
	stepDelay    string
	stepUnit     string
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Edit the email sequence of the current draft",
}

var stepAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a step",
	RunE:  runStepAdd,
}

var stepEditCmd = &cobra.Command{
	Use:   "edit <step-id>",
	Short: "Change subject, body or delay of a step",
	Args:  cobra.ExactArgs(1),
	RunE:  runStepEdit,
}

var stepRemoveCmd = &cobra.Command{
	Use:   "remove <step-id>",
	Short: "Remove a step (the last remaining step cannot be removed)",
	Args:  cobra.ExactArgs(1),
	RunE:  runStepRemove,
}

var stepTemplateCmd = &cobra.Command{
	Use:   "template <step-id> <template-id>",
	Short: "Fill a step from an email template (template-id 0 clears it)",
	Args:  cobra.ExactArgs(2),
	RunE:  runStepTemplate,
}

var stepVarCmd = &cobra.Command{
	Use:   "var <namespace> <key>",
	Short: "Print a placeholder token for use in a step body",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(placeholder.Token(args[0], args[1]))
	},
}

func init() {
	for _, c := range []*cobra.Command{stepAddCmd, stepEditCmd} {
		c.Flags().StringVar(&stepSubject, "subject", "", "Email subject")
		c.Flags().StringVar(&stepBody, "body", "", "Email body (markdown)")
		c.Flags().StringVar(&stepBodyFile, "body-file", "", "Read body from file (- for stdin)")
		c.Flags().StringVar(&stepDelay, "delay", "", "Delay before this step")
		c.Flags().StringVar(&stepUnit, "unit", "", "Delay unit: minutes, hours, days, weeks")
	}

	stepCmd.AddCommand(stepAddCmd, stepEditCmd, stepRemoveCmd, stepTemplateCmd, stepVarCmd)
	rootCmd.AddCommand(stepCmd)
}

// stepEdits collects the flags set on cmd into a step mutation
func stepEdits(cmd *cobra.Command) (func(*campaign.StepDraft), error) {
	flags := cmd.Flags()

	var body *string
	switch {
	case flags.Changed("body-file"):
		data, err := readInput(stepBodyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		s := string(data)
		body = &s
	case flags.Changed("body"):
		body = &stepBody
	}

	var unit campaign.DelayUnit
	if flags.Changed("unit") {
		u, err := campaign.ParseDelayUnit(stepUnit)
		if err != nil {
			return nil, err
		}
		unit = u
	}

	return func(s *campaign.StepDraft) {
		if flags.Changed("subject") {
			s.Subject = stepSubject
		}
		if body != nil {
			s.Body = *body
		}
		if flags.Changed("delay") {
			s.DelayValue = campaign.ParseDelayValue(stepDelay)
		}
		if unit != "" {
			s.DelayUnit = unit
		}
	}, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parseStepID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid step id: %s", s)
	}
	return id, nil
}

func runStepAdd(cmd *cobra.Command, args []string) error {
	edit, err := stepEdits(cmd)
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	var added campaign.StepDraft
	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		step, err := b.AddStep()
		if err != nil {
			return err
		}
		if err := b.UpdateStep(step.ID, edit); err != nil {
			return err
		}
		added = step
		return nil
	})
	if err != nil {
		return err
	}

	steps := b.Steps()
	fmt.Printf("Step %d added (%d steps)\n", added.ID, len(steps))
	printStep(os.Stdout, len(steps)-1, steps[len(steps)-1], false)
	return nil
}

func runStepEdit(cmd *cobra.Command, args []string) error {
	id, err := parseStepID(args[0])
	if err != nil {
		return err
	}
	edit, err := stepEdits(cmd)
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		return b.UpdateStep(id, edit)
	})
	if err != nil {
		return err
	}

	for i, step := range b.Steps() {
		if step.ID == id {
			printStep(os.Stdout, i, step, false)
		}
	}
	return nil
}

func runStepRemove(cmd *cobra.Command, args []string) error {
	id, err := parseStepID(args[0])
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		return b.RemoveStep(id)
	})
	if err != nil {
		return err
	}
	fmt.Printf("Step %d removed (%d steps left)\n", id, len(b.Steps()))
	return nil
}

func runStepTemplate(cmd *cobra.Command, args []string) error {
	id, err := parseStepID(args[0])
	if err != nil {
		return err
	}
	templateID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || templateID < 0 {
		return fmt.Errorf("invalid template id: %s", args[1])
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var templates []backend.Template
	if templateID != 0 {
		list, err := s.client.ListTemplates(ctx)
		if err != nil {
			return apiError(err, "Failed to load templates")
		}
		templates = list.Items
	}

	b, err := s.editDraft(ctx, func(b *campaign.Builder) error {
		return b.SelectTemplate(id, templateID, templates)
	})
	if err != nil {
		return err
	}

	for i, step := range b.Steps() {
		if step.ID == id {
			printStep(os.Stdout, i, step, true)
		}
	}
	return nil
}
