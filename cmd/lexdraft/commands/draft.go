package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/draft"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
)

// NewDraftCmd constructs the `lexdraft draft` command, the interactive-less
// path through the drafting pipeline: match a template, answer its
// questions, render the draft.
func NewDraftCmd() *cobra.Command {
	var templateID string
	var instanceID string
	var answers []string

	cmd := &cobra.Command{
		Use:   "draft [query]",
		Short: "Start or finalize a draft from a template",
		Long: `Start a new draft by matching a template against a natural-language
query (or by naming one directly with --template), or finalize an
existing draft by passing --instance with --answer flags.

Examples:
  lexdraft draft "notice to my insurance company about a car accident"
  lexdraft draft --template tpl_notice_to_insurer
  lexdraft draft --instance inst-1 --answer claimant_name="Rajesh Kumar" --answer incident_date=2026-08-12`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}
			defer cleanup()

			if instanceID != "" {
				return finalizeDraft(cmd, svcs, instanceID, answers)
			}

			var query string
			if len(args) == 1 {
				query = args[0]
			}
			if query == "" && templateID == "" {
				return fmt.Errorf("draft: provide a query or --template")
			}

			res, err := svcs.drafts.Start(ctx, draft.StartRequest{
				TemplateID: templateID,
				UserQuery:  query,
			})
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}

			fmt.Printf("%s\n\n", res.Message)
			fmt.Printf("Template:   %s (%s)\n", res.TemplateTitle, res.TemplateID)
			fmt.Printf("Instance:   %s\n", res.InstanceID)
			fmt.Printf("Confidence: %.0f%%\n", res.Confidence*100)
			if res.Justification != "" {
				fmt.Printf("Reason:     %s\n", res.Justification)
			}
			if len(res.PreFilled) > 0 {
				fmt.Println("\nPre-filled from your query:")
				for k, v := range res.PreFilled {
					fmt.Printf("  %s = %v\n", k, v)
				}
			}
			if len(res.Questions) > 0 {
				fmt.Println("\nQuestions to answer:")
				for _, q := range res.Questions {
					fmt.Printf("  [%s] %s\n", q.VariableKey, q.Question)
				}
				fmt.Printf("\nAnswer with:\n  lexdraft draft --instance %s", res.InstanceID)
				for _, k := range res.MissingVariables {
					fmt.Printf(" --answer %s=...", k)
				}
				fmt.Println()
			}
			if len(res.Alternatives) > 0 {
				fmt.Println("\nAlternatives:")
				for _, alt := range res.Alternatives {
					fmt.Printf("  %s  %s\n", alt.TemplateID, alt.Title)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "Use this template directly instead of matching")
	cmd.Flags().StringVar(&instanceID, "instance", "", "Finalize this draft instance")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "Variable answer as key=value (repeatable)")

	return cmd
}

func finalizeDraft(cmd *cobra.Command, svcs *services, instanceID string, answers []string) error {
	parsed, err := parseAnswers(answers)
	if err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	res, err := svcs.drafts.Finalize(cmd.Context(), instanceID, parsed)
	if err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	fmt.Println(res.DraftText)
	fmt.Fprintf(os.Stderr, "\n%s (instance %s, draft #%d)\n", res.Message, res.InstanceID, res.DraftNumber)
	return nil
}

func parseAnswers(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --answer %q, expected key=value", p)
		}
		out[key] = value
	}
	return out, nil
}
