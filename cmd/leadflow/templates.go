package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/backend"
	"github.com/foxzi/leadflow/internal/placeholder"
)

var (
	templateName     string
	templateSubject  string
	templateBody     string
	templateBodyFile string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Email template commands",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List email templates",
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

var templatesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template",
	RunE:  runTemplatesCreate,
}

var templatesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesUpdate,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

func init() {
	for _, c := range []*cobra.Command{templatesCreateCmd, templatesUpdateCmd} {
		c.Flags().StringVar(&templateName, "name", "", "Template name")
		c.Flags().StringVar(&templateSubject, "subject", "", "Email subject")
		c.Flags().StringVar(&templateBody, "body", "", "Email body (markdown)")
		c.Flags().StringVar(&templateBodyFile, "body-file", "", "Read body from file (- for stdin)")
	}
	templatesCreateCmd.MarkFlagRequired("name")
	templatesCreateCmd.MarkFlagRequired("subject")

	templatesCmd.AddCommand(
		templatesListCmd,
		templatesShowCmd,
		templatesCreateCmd,
		templatesUpdateCmd,
		templatesDeleteCmd,
	)
	rootCmd.AddCommand(templatesCmd)
}

func parseRemoteID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s id: %s", what, s)
	}
	return id, nil
}

func templateBodyInput(cmd *cobra.Command) (string, bool, error) {
	if cmd.Flags().Changed("body-file") {
		data, err := readInput(templateBodyFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read body: %w", err)
		}
		return string(data), true, nil
	}
	return templateBody, cmd.Flags().Changed("body"), nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := s.client.ListTemplates(cmd.Context())
	if err != nil {
		return apiError(err, "Failed to load templates")
	}
	if len(list.Items) == 0 {
		fmt.Println("No templates found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSUBJECT\tVARIABLES")
	for _, tmpl := range list.Items {
		subject := tmpl.Subject
		if len(subject) > 40 {
			subject = subject[:37] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", tmpl.ID, tmpl.Name, subject, len(placeholder.Extract(tmpl.Body)))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d templates\n", len(list.Items))
	return nil
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	id, err := parseRemoteID(args[0], "template")
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := s.client.GetTemplate(cmd.Context(), id)
	if backend.IsNotFound(err) {
		return fmt.Errorf("template not found: %d", id)
	}
	if err != nil {
		return apiError(err, "Failed to load template")
	}

	fmt.Printf("ID:      %d\n", tmpl.ID)
	fmt.Printf("Name:    %s\n", tmpl.Name)
	fmt.Printf("Subject: %s\n", tmpl.Subject)
	if tmpl.UpdatedAt != nil {
		fmt.Printf("Updated: %s\n", tmpl.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()

	out, err := placeholder.RenderTerminal(tmpl.Body, 80)
	if err != nil {
		fmt.Println(tmpl.Body)
		return nil
	}
	fmt.Print(out)
	return nil
}

func runTemplatesCreate(cmd *cobra.Command, args []string) error {
	body, _, err := templateBodyInput(cmd)
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := s.client.CreateTemplate(cmd.Context(), &backend.TemplateRequest{
		Name:    templateName,
		Subject: templateSubject,
		Body:    body,
	})
	if err != nil {
		return apiError(err, "Failed to create template")
	}

	fmt.Printf("Template created successfully\n")
	fmt.Printf("  ID:   %d\n", tmpl.ID)
	fmt.Printf("  Name: %s\n", tmpl.Name)
	return nil
}

func runTemplatesUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseRemoteID(args[0], "template")
	if err != nil {
		return err
	}
	body, bodySet, err := templateBodyInput(cmd)
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	current, err := s.client.GetTemplate(ctx, id)
	if err != nil {
		return apiError(err, "Failed to load template")
	}

	req := &backend.TemplateRequest{Name: current.Name, Subject: current.Subject, Body: current.Body}
	if cmd.Flags().Changed("name") {
		req.Name = templateName
	}
	if cmd.Flags().Changed("subject") {
		req.Subject = templateSubject
	}
	if bodySet {
		req.Body = body
	}

	tmpl, err := s.client.UpdateTemplate(ctx, id, req)
	if err != nil {
		return apiError(err, "Failed to update template")
	}
	fmt.Printf("Template %d updated (%s)\n", tmpl.ID, tmpl.Name)
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseRemoteID(args[0], "template")
	if err != nil {
		return err
	}

	s, cleanup, err := openSession(false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := s.client.DeleteTemplate(cmd.Context(), id); err != nil {
		return apiError(err, "Failed to delete template")
	}
	fmt.Printf("Template %d deleted\n", id)
	return nil
}
