package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/campaign"
	"github.com/foxzi/leadflow/internal/enhance"
	"github.com/foxzi/leadflow/internal/placeholder"
)

var (
	enhanceInstruction string
	enhanceApply       bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <step-id>",
	Short: "Rewrite a step of the current draft with AI",
	Long: `Ask the configured AI provider to improve the subject and body of a step.

Placeholder tokens are kept verbatim; a rewrite that drops one is rejected.
The result is only printed unless --apply is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnhance,
}

func init() {
	enhanceCmd.Flags().StringVarP(&enhanceInstruction, "instruction", "i", "", "Extra instruction, e.g. \"shorter and more casual\"")
	enhanceCmd.Flags().BoolVar(&enhanceApply, "apply", false, "Replace the step content with the result")

	rootCmd.AddCommand(enhanceCmd)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	id, err := parseStepID(args[0])
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	rec, b, err := s.currentDraft(ctx)
	if err != nil {
		return err
	}

	var step *campaign.StepDraft
	for _, st := range b.Steps() {
		if st.ID == id {
			st := st
			step = &st
		}
	}
	if step == nil {
		return fmt.Errorf("%w: %d", campaign.ErrStepNotFound, id)
	}

	svc, err := enhance.New(ctx, s.cfg.AI, s.client, s.logger)
	if err != nil {
		return err
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("Enhancing step %d with %s...", id, svc.Provider())))
	res, err := svc.Enhance(ctx, enhance.Request{
		Subject:     step.Subject,
		Body:        step.Body,
		Instruction: enhanceInstruction,
	})
	if errors.Is(err, enhance.ErrPlaceholdersLost) {
		return fmt.Errorf("%w; step left unchanged", err)
	}
	if err != nil {
		return apiError(err, "Failed to enhance content")
	}

	fmt.Println(titleStyle.Render(res.Subject))
	if out, err := placeholder.RenderTerminal(res.Body, 80); err == nil {
		fmt.Print(out)
	} else {
		fmt.Println(res.Body)
	}

	if !enhanceApply {
		fmt.Println(mutedStyle.Render("Run again with --apply to keep this version."))
		return nil
	}

	if err := b.UpdateStep(id, func(st *campaign.StepDraft) {
		st.Subject = res.Subject
		st.Body = res.Body
	}); err != nil {
		return err
	}
	if err := s.saveDraft(ctx, rec, b); err != nil {
		return err
	}
	fmt.Printf("Step %d updated\n", id)
	return nil
}
