package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/extractor"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// NewExtractCmd constructs the `lexdraft extract` command, which turns a
// document file into a template.
func NewExtractCmd() *cobra.Command {
	var title string
	var fileDescription string
	var save bool

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract variables from a document and build a template",
		Long: `Extract fillable variables from a legal document and synthesize a
reusable template with {{variable}} placeholders.

Without --save the extracted template is printed for review. With --save
it is embedded and persisted so drafts can match against it.

Examples:
  lexdraft extract notice.txt --title "Notice to Insurer"
  lexdraft extract affidavit.txt --title "General Affidavit" --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if title == "" {
				return fmt.Errorf("extract: --title is required")
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("extract: read %s: %w", args[0], err)
			}

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			defer cleanup()

			res, err := svcs.extractor.Extract(ctx, string(raw))
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}

			templateID := extractor.GenerateTemplateID(title)
			body := extractor.BuildMarkdown(string(raw), res.Variables, extractor.TemplateMeta{
				TemplateID:      templateID,
				Title:           title,
				DocType:         res.DocType,
				Jurisdiction:    res.Jurisdiction,
				SimilarityTags:  res.SimilarityTags,
				FileDescription: fileDescription,
			})

			if !save {
				fmt.Println(body)
				fmt.Fprintf(os.Stderr, "extracted %d variables (template_id: %s); re-run with --save to persist\n",
					len(res.Variables), templateID)
				return nil
			}

			t := &model.Template{
				TemplateID:      templateID,
				Title:           title,
				FileDescription: fileDescription,
				DocType:         res.DocType,
				Jurisdiction:    res.Jurisdiction,
				SimilarityTags:  res.SimilarityTags,
				Body:            body,
				Variables:       res.Variables,
			}
			t.Embedding, err = embedder.EmbedOne(ctx, svcs.embedder, t.EmbeddingText())
			if err != nil {
				return fmt.Errorf("extract: embed template: %w", err)
			}
			if err := svcs.store.CreateTemplate(ctx, t); err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			if svcs.qdrant != nil {
				if err := svcs.qdrant.IndexTemplate(ctx, t); err != nil {
					fmt.Fprintf(os.Stderr, "warning: vector index update failed: %v\n", err)
				}
			}

			out := map[string]any{
				"template_id": t.TemplateID,
				"title":       t.Title,
				"variables":   len(t.Variables),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Template title (required)")
	cmd.Flags().StringVar(&fileDescription, "description", "", "Short description of the template")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the template after extraction")

	return cmd
}
