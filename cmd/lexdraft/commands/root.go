// Package commands defines all Cobra CLI commands for the lexdraft binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/audit"
	"github.com/veritaslegal/lexdraft-go/internal/config"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lexdraft",
		Short: "LexDraft — template-driven legal document drafting powered by LLMs",
		Long: `LexDraft turns legal documents into reusable templates and drafts new
documents from them.

It extracts fillable variables from uploaded documents, matches free-form
requests to stored templates by embedding similarity, asks for the missing
details, and renders the finished draft. When no stored template fits, it
can bootstrap one from the web.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.lexdraft/config.yaml).
See 'lexdraft --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.lexdraft/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewExtractCmd(),
		NewDraftCmd(),
		NewTemplatesCmd(),
		NewSearchCmd(),
		NewVersionCmd(),
	)

	return root
}
