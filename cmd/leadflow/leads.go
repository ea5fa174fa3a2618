package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/campaign"
)

var (
	leadsPage   int
	leadsSelect bool
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Select saved leads for the current draft",
}

var leadsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search saved leads",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLeadsSearch,
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the leads selected for the current draft",
	RunE:  runLeadsList,
}

var leadsAddCmd = &cobra.Command{
	Use:   "add <lead-id>...",
	Short: "Add saved leads by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLeadsAdd,
}

var leadsRemoveCmd = &cobra.Command{
	Use:   "remove <lead-id>",
	Short: "Remove a lead from the selection",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadsRemove,
}

var leadsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the selection",
	RunE:  runLeadsClear,
}

func init() {
	leadsSearchCmd.Flags().IntVar(&leadsPage, "page", 1, "Result page")
	leadsSearchCmd.Flags().BoolVar(&leadsSelect, "add", false, "Add every lead on the page to the current draft")

	leadsCmd.AddCommand(leadsSearchCmd, leadsListCmd, leadsAddCmd, leadsRemoveCmd, leadsClearCmd)
	rootCmd.AddCommand(leadsCmd)
}

func runLeadsSearch(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(leadsSelect)
	if err != nil {
		return err
	}
	defer cleanup()

	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	ctx := cmd.Context()
	list, err := s.client.ListSavedLeads(ctx, query, leadsPage)
	if err != nil {
		return apiError(err, "Failed to search leads")
	}
	if len(list.Items) == 0 {
		fmt.Println("No leads found")
		return nil
	}

	printLeads(list.Items)
	if list.Kind == backend.ListPaginated {
		fmt.Printf("\nPage %d of %d (%d leads)\n", list.Page.CurrentPage, list.Page.LastPage, list.Page.Total)
	}

	if !leadsSelect {
		return nil
	}

	refs := make([]campaign.LeadRef, len(list.Items))
	for i, l := range list.Items {
		refs[i] = campaign.LeadFromBackend(l)
	}
	var added int
	b, err := s.editDraft(ctx, func(b *campaign.Builder) error {
		added, err = b.AddLeads(refs...)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %d lead(s); %d selected\n", added, len(b.Leads()))
	return nil
}

func printLeads(leads []backend.Lead) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tTITLE")
	for _, l := range leads {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.DisplayName(), l.Email, l.Company, l.JobTitle)
	}
	w.Flush()
}

func runLeadsList(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	_, b, err := s.currentDraft(cmd.Context())
	if err != nil {
		return err
	}

	leads := b.Leads()
	if len(leads) == 0 {
		fmt.Println("No leads selected")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY")
	for _, l := range leads {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.ID, l.Name, l.Email, l.Company)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d leads\n", len(leads))
	return nil
}

func parseLeadIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id < 1 {
				return nil, fmt.Errorf("invalid lead id: %s", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func runLeadsAdd(cmd *cobra.Command, args []string) error {
	ids, err := parseLeadIDs(args)
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	refs := make([]campaign.LeadRef, len(ids))
	for i, id := range ids {
		refs[i] = campaign.LeadRef{ID: id}
	}

	var added int
	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		added, err = b.AddLeads(refs...)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("Added %d lead(s); %d selected\n", added, len(b.Leads()))
	return nil
}

func runLeadsRemove(cmd *cobra.Command, args []string) error {
	ids, err := parseLeadIDs(args)
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("expected one lead id")
	}

	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	var removed bool
	b, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		removed, err = b.RemoveLead(ids[0])
		return err
	})
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("Lead %d was not selected\n", ids[0])
		return nil
	}
	fmt.Printf("Lead %d removed; %d selected\n", ids[0], len(b.Leads()))
	return nil
}

func runLeadsClear(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(true)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := s.editDraft(cmd.Context(), func(b *campaign.Builder) error {
		return b.ClearLeads()
	}); err != nil {
		return err
	}
	fmt.Println("Selection cleared")
	return nil
}
