package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/server"
)

// NewServeCmd constructs the `lexdraft serve` command, which starts the
// HTTP API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LexDraft HTTP API server",
		Long: `Start the LexDraft HTTP server on localhost.

The server exposes the drafting pipeline over REST: template extraction
and storage, draft sessions, web search, and web bootstrap, plus
/api/health, /api/ready, and Prometheus /metrics.

Examples:
  lexdraft serve
  lexdraft serve --port 9090
  MODEL_PROVIDER=openai lexdraft serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			svcs, cleanup, err := buildServices(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			pingers := []server.Pinger{server.NewNamedPinger(svcs.store, "sqlite")}
			if svcs.qdrant != nil {
				pingers = append(pingers, server.NewNamedPinger(svcs.qdrant, "qdrant"))
			}

			deps := server.Deps{
				Store:     svcs.store,
				Extractor: svcs.extractor,
				Embedder:  svcs.embedder,
				Drafts:    svcs.drafts,
			}
			if svcs.boot != nil {
				deps.Bootstrap = svcs.boot
			}
			if svcs.qdrant != nil {
				deps.Indexer = svcs.qdrant
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("LEXDRAFT_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
