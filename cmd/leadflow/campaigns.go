package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/backend"
)

var campaignsPage int

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Inspect campaigns on the backend",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE:  runCampaignsList,
}

var campaignsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a campaign and its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignsShow,
}

func init() {
	campaignsListCmd.Flags().IntVar(&campaignsPage, "page", 1, "Result page")

	campaignsCmd.AddCommand(campaignsListCmd, campaignsShowCmd)
	rootCmd.AddCommand(campaignsCmd)
}

func runCampaignsList(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := s.client.ListCampaigns(cmd.Context(), campaignsPage)
	if err != nil {
		return apiError(err, "Failed to load campaigns")
	}
	if len(list.Items) == 0 {
		fmt.Println("No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTEPS\tLEADS")
	for _, c := range list.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", c.ID, c.Name, c.Status, c.StepsCount, c.LeadsCount)
	}
	w.Flush()

	if list.Kind == backend.ListPaginated {
		fmt.Printf("\nPage %d of %d (%d campaigns)\n", list.Page.CurrentPage, list.Page.LastPage, list.Page.Total)
	} else {
		fmt.Printf("\nTotal: %d campaigns\n", len(list.Items))
	}
	return nil
}

func runCampaignsShow(cmd *cobra.Command, args []string) error {
	id, err := parseRemoteID(args[0], "campaign")
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	c, err := s.client.GetCampaign(ctx, id)
	if backend.IsNotFound(err) {
		return fmt.Errorf("campaign not found: %d", id)
	}
	if err != nil {
		return apiError(err, "Failed to load campaign")
	}
	printCampaign(os.Stdout, c)

	steps, err := s.client.ListSteps(ctx, id)
	if err != nil {
		return apiError(err, "Failed to load steps")
	}
	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf("Steps (%d)", len(steps.Items))))
	for _, st := range steps.Items {
		fmt.Printf("  %d. %s %s\n", st.StepOrder, st.Subject, mutedStyle.Render(fmt.Sprintf("after %dh", st.DelayHours)))
	}
	return nil
}

func printCampaign(w io.Writer, c *backend.Campaign) {
	fmt.Fprintf(w, "ID:                %d\n", c.ID)
	fmt.Fprintf(w, "Name:              %s\n", c.Name)
	if c.Description != "" {
		fmt.Fprintf(w, "Description:       %s\n", c.Description)
	}
	fmt.Fprintf(w, "Status:            %s\n", c.Status)
	fmt.Fprintf(w, "Track email opens: %s\n", yesNo(c.TrackEmailOpens))
	if c.CreatedAt != nil {
		fmt.Fprintf(w, "Created:           %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}
