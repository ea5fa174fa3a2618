package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/leadflow/internal/placeholder"
)

var (
	renderHTML  bool
	renderWidth int
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a markdown body with placeholder chips",
	Long: `Render markdown from a file (or stdin when no file or "-" is given).

Placeholder tokens such as [{{lead.first_name}}](placeholder) are shown as
variables instead of links.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Output HTML instead of terminal text")
	renderCmd.Flags().IntVar(&renderWidth, "width", 80, "Word wrap width")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	data, err := readInput(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	markdown := string(data)

	var out string
	if renderHTML {
		out, err = placeholder.RenderHTML(markdown)
	} else {
		out, err = placeholder.RenderTerminal(markdown, renderWidth)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)

	if vars := placeholder.Extract(markdown); len(vars) > 0 && !renderHTML {
		names := make([]string, len(vars))
		for i, p := range vars {
			names[i] = p.Name()
		}
		fmt.Println(mutedStyle.Render("variables: " + strings.Join(names, ", ")))
	}
	return nil
}
