package commands

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/qodana/pkg/mcp"
	"github.com/Sumatoshi-tech/qodana/pkg/observability"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
	"github.com/Sumatoshi-tech/qodana/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug        bool
		otlpEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "mcp <results-dir>",
		Short: "Serve a finished run over MCP",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport over the
result store of a finished run. Tools:
  - qodana_problems: problems of a group, filtered by inspection and severity
  - qodana_summary: problem counts and the exit status for given thresholds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := observability.DefaultConfig()
			cfg.ServiceVersion = version.Version
			cfg.Mode = observability.ModeMCP
			cfg.OTLP.Endpoint = otlpEndpoint
			cfg.LogJSON = true
			cfg.LogOutput = cmd.ErrOrStderr()

			if debug {
				cfg.LogLevel = slog.LevelDebug
			}

			providers, err := observability.Init(cfg)
			if err != nil {
				return startupError(err)
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			metrics, err := observability.NewRunMetrics(providers.Meter)
			if err != nil {
				return startupError(err)
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				StorePath: filepath.Join(args[0], resultstore.FileName),
				Version:   version.Version,
				Logger:    providers.Logger,
				Metrics:   metrics,
				Tracer:    providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address")

	return cmd
}
