package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
)

// NewTemplatesCmd constructs the `lexdraft templates` command group.
func NewTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect stored templates",
	}
	cmd.AddCommand(newTemplatesListCmd(), newTemplatesShowCmd())
	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("templates: %w", err)
			}
			defer cleanup()

			templates, err := svcs.store.ListTemplates(ctx)
			if err != nil {
				return fmt.Errorf("templates: %w", err)
			}
			if len(templates) == 0 {
				fmt.Println("No templates stored. Use `lexdraft extract --save` or `lexdraft search --bootstrap` to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TEMPLATE ID\tTITLE\tTYPE\tVARS")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.TemplateID, t.Title, t.DocType, len(t.Variables))
			}
			return w.Flush()
		},
	}
}

func newTemplatesShowCmd() *cobra.Command {
	var body bool

	cmd := &cobra.Command{
		Use:   "show [template_id]",
		Short: "Show one template's metadata and variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("templates: %w", err)
			}
			defer cleanup()

			t, err := svcs.store.GetTemplate(ctx, args[0])
			if err != nil {
				return fmt.Errorf("templates: %w", err)
			}

			if body {
				fmt.Println(t.Body)
				return nil
			}

			fmt.Printf("Template:     %s\n", t.TemplateID)
			fmt.Printf("Title:        %s\n", t.Title)
			if t.DocType != "" {
				fmt.Printf("Type:         %s\n", t.DocType)
			}
			if t.Jurisdiction != "" {
				fmt.Printf("Jurisdiction: %s\n", t.Jurisdiction)
			}
			if len(t.SimilarityTags) > 0 {
				fmt.Printf("Tags:         %s\n", strings.Join(t.SimilarityTags, ", "))
			}
			if t.FileDescription != "" {
				fmt.Printf("Description:  %s\n", t.FileDescription)
			}
			fmt.Printf("\nVariables (%d):\n", len(t.Variables))
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, v := range t.Variables {
				req := "optional"
				if v.Required {
					req = "required"
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", v.Key, v.Label, v.Dtype, req)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&body, "body", false, "Print the raw template body instead of metadata")
	return cmd
}
