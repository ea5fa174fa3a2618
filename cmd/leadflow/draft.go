package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/campaign"
)

var (
	draftName        string
	draftDescription string
	draftTrackOpens  bool
	draftRender      bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Campaign draft commands",
	Long: `Create and move through campaign drafts.

A draft passes three stages: info (name and settings), steps (the email
sequence) and leads (recipients). "next" only advances when the current
stage is complete; "submit" creates the campaign on the backend.`,
}

var draftNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new draft and make it current",
	RunE:  runDraftNew,
}

var draftSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change name, description or open tracking of the current draft",
	RunE:  runDraftSet,
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current draft",
	RunE:  runDraftShow,
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored drafts",
	RunE:  runDraftList,
}

var draftUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a draft current (id prefix allowed)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftUse,
}

var draftDiscardCmd = &cobra.Command{
	Use:   "discard [id]",
	Short: "Delete a draft (default: current)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDraftDiscard,
}

var draftNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance to the next stage",
	RunE:  runDraftNext,
}

var draftBackCmd = &cobra.Command{
	Use:   "back",
	Short: "Return to the previous stage",
	RunE:  runDraftBack,
}

var draftSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create the campaign, its steps and lead attachments on the backend",
	RunE:  runDraftSubmit,
}

func init() {
	draftNewCmd.Flags().StringVar(&draftName, "name", "", "Campaign name")
	draftNewCmd.Flags().StringVar(&draftDescription, "description", "", "Campaign description")
	draftNewCmd.Flags().BoolVar(&draftTrackOpens, "track-opens", false, "Track email opens")

	draftSetCmd.Flags().StringVar(&draftName, "name", "", "Campaign name")
	draftSetCmd.Flags().StringVar(&draftDescription, "description", "", "Campaign description")
	draftSetCmd.Flags().BoolVar(&draftTrackOpens, "track-opens", false, "Track email opens")

	draftShowCmd.Flags().BoolVar(&draftRender, "render", true, "Render step bodies")

	draftCmd.AddCommand(
		draftNewCmd,
		draftSetCmd,
		draftShowCmd,
		draftListCmd,
		draftUseCmd,
		draftDiscardCmd,
		draftNextCmd,
		draftBackCmd,
		draftSubmitCmd,
	)
	rootCmd.AddCommand(draftCmd)
}

func runDraftNew(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b := campaign.NewBuilder()
	if err := b.SetInfo(campaign.Info{
		Name:            draftName,
		Description:     draftDescription,
		TrackEmailOpens: draftTrackOpens,
	}); err != nil {
		return err
	}

	rec, err := s.store.Create(cmd.Context(), b.Snapshot())
	if err != nil {
		return err
	}

	fmt.Printf("Draft created: %s\n", shortID(rec.ID))
	fmt.Println(stageBanner(b.Stage()))
	return nil
}

func runDraftSet(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		info := b.Info()
		if cmd.Flags().Changed("name") {
			info.Name = draftName
		}
		if cmd.Flags().Changed("description") {
			info.Description = draftDescription
		}
		if cmd.Flags().Changed("track-opens") {
			info.TrackEmailOpens = draftTrackOpens
		}
		return b.SetInfo(info)
	})
	if err != nil {
		return err
	}

	info := b.Info()
	fmt.Printf("Name:              %s\n", info.Name)
	fmt.Printf("Description:       %s\n", info.Description)
	fmt.Printf("Track email opens: %s\n", yesNo(info.TrackEmailOpens))
	return nil
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, b, err := s.currentDraft(cmd.Context())
	if err != nil {
		return err
	}
	printDraft(os.Stdout, rec.ID, b.Snapshot(), draftRender)
	return nil
}

func runDraftList(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No drafts found")
		return nil
	}

	currentID := ""
	if cur, err := s.store.Current(ctx); err == nil {
		currentID = cur.ID
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tNAME\tSTAGE\tSTEPS\tLEADS\tUPDATED")
	for _, rec := range records {
		marker := " "
		if rec.ID == currentID {
			marker = "*"
		}
		name := rec.Draft.Info.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			marker,
			shortID(rec.ID),
			name,
			rec.Draft.Stage,
			len(rec.Draft.Steps),
			len(rec.Draft.Leads),
			rec.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d drafts\n", len(records))
	return nil
}

func runDraftUse(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	rec, err := s.store.Find(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.store.SetCurrent(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Printf("Current draft: %s (%s)\n", shortID(rec.ID), rec.Draft.Info.Name)
	return nil
}

func runDraftDiscard(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var id string
	if len(args) == 1 {
		rec, err := s.store.Find(ctx, args[0])
		if err != nil {
			return err
		}
		id = rec.ID
	} else {
		rec, _, err := s.currentDraft(ctx)
		if err != nil {
			return err
		}
		id = rec.ID
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	fmt.Printf("Draft %s discarded\n", shortID(id))
	return nil
}

func runDraftNext(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		return b.Next()
	})
	if err != nil {
		return err
	}
	fmt.Println(stageBanner(b.Stage()))
	return nil
}

func runDraftBack(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		b.Back()
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println(stageBanner(b.Stage()))
	return nil
}

func runDraftSubmit(cmd *cobra.Command, args []string) error {
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
	if b.Stage() != campaign.StageLeads {
		return fmt.Errorf("draft is at the %s stage; advance to leads first (leadflow draft next)", b.Stage())
	}

	submitter := campaign.NewSubmitter(s.client, s.logger.With("component", "submitter"))
	result, err := b.Submit(ctx, submitter)
	if err != nil {
		return submitFailure(err)
	}

	if err := s.store.Delete(context.WithoutCancel(ctx), rec.ID); err != nil {
		s.logger.Warn("failed to delete submitted draft", "draft", rec.ID, "error", err)
	}

	fmt.Println(titleStyle.Render("Campaign created"))
	detail, err := s.client.GetCampaign(ctx, result.Campaign.ID)
	if err != nil {
		// The campaign exists; only the detail view is unavailable
		detail = result.Campaign
	}
	printCampaign(os.Stdout, detail)
	fmt.Printf("  Steps created:  %d\n", len(result.Steps))
	fmt.Printf("  Leads attached: %d\n", result.LeadsAttached)
	return nil
}

func submitFailure(err error) error {
	var submitErr *campaign.SubmitError
	if !errors.As(err, &submitErr) {
		return err
	}

	fmt.Fprintln(os.Stderr, errorStyle.Render(submitErr.UserMessage()))
	if submitErr.CampaignID != 0 {
		fmt.Fprintf(os.Stderr, "Campaign #%d was created with %d step(s) before the failure; it was not rolled back.\n",
			submitErr.CampaignID, submitErr.StepsCreated)
	}
	return err
}
