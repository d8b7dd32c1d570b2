package commands

import (
	"context"
	"errors"
	"os"

	"github.com/reflens/reflens/internal/lsp"
	"github.com/reflens/reflens/internal/manifest"
	"github.com/reflens/reflens/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errNoProject = errors.New("no dbt project found (missing dbt_project.yml)")

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for IDE integration.

The server communicates over stdin/stdout using JSON-RPC. dbt projects are
discovered under the workspace root from the client's initialization request,
and each project's manifest artifact is watched for changes.`,
		Example: `  # Start LSP server (usually called by an IDE)
  reflens lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	sender := telemetry.Noop()
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint != "" {
		sender = telemetry.New(cfg.Telemetry.Endpoint, logger)
	}

	container := manifest.NewContainer(logger)
	server := lsp.NewServerWithOptions(os.Stdin, os.Stdout, lsp.Options{
		Logger:       logger,
		Telemetry:    sender,
		Container:    container,
		ManifestPath: cfg.ManifestPath,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel() // stop the watcher once the client disconnects
		return server.Run()
	})
	g.Go(func() error {
		return container.Watch(ctx)
	})

	return g.Wait()
}
