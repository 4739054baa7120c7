package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
)

// NewSearchCmd constructs the `lexdraft search` command: find template
// candidates on the web, optionally bootstrapping one into the store.
func NewSearchCmd() *cobra.Command {
	var numResults int
	var bootstrapIdx int
	var title string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the web for template source documents",
		Long: `Search the web for pages that can serve as template sources. With
--bootstrap N the Nth result (1-based) is fetched, converted into a
template, and saved to the store.

Requires EXA_API_KEY.

Examples:
  lexdraft search "motor insurance claim notice india"
  lexdraft search "rent agreement delhi" --bootstrap 1 --title "Rent Agreement (Delhi)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer cleanup()

			if svcs.boot == nil {
				return fmt.Errorf("search: web search is not configured; set EXA_API_KEY")
			}

			hits, err := svcs.boot.SearchWeb(ctx, args[0], numResults)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(hits) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for i, h := range hits {
				fmt.Printf("%d. %s\n   %s\n", i+1, h.Title, h.URL)
				if h.Snippet != "" {
					fmt.Printf("   %s\n", h.Snippet)
				}
			}

			if bootstrapIdx == 0 {
				return nil
			}
			if bootstrapIdx < 1 || bootstrapIdx > len(hits) {
				return fmt.Errorf("search: --bootstrap %d out of range (1-%d)", bootstrapIdx, len(hits))
			}
			hit := hits[bootstrapIdx-1]
			t := title
			if t == "" {
				t = hit.Title
			}
			fmt.Printf("\nBootstrapping template from %s ...\n", hit.URL)
			tpl, err := svcs.boot.FetchAndTemplatize(ctx, hit.ID, hit.URL, t)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			fmt.Printf("Created template %s (%q) with %d variables.\n",
				tpl.TemplateID, tpl.Title, len(tpl.Variables))
			return nil
		},
	}

	cmd.Flags().IntVarP(&numResults, "num", "n", 3, "Number of results to return")
	cmd.Flags().IntVar(&bootstrapIdx, "bootstrap", 0, "Bootstrap the Nth result into a template (1-based)")
	cmd.Flags().StringVar(&title, "title", "", "Title for the bootstrapped template (defaults to the page title)")

	return cmd
}
