package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pgmcp "github.com/faucetdb/pgmcp/internal/mcp"
	"github.com/faucetdb/pgmcp/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP bridge",
		Long: `Connect to PostgreSQL, resolve the configured resources and tools, and
serve them over MCP.

In stdio mode the server speaks JSON-RPC on stdin/stdout, suitable for
desktop MCP clients. In http mode it serves the streamable HTTP transport
at /mcp with /healthz and /readyz probes.`,
		Example: `  pgmcp serve                                # stdio, ./pgmcp.yaml
  pgmcp serve --transport http --port 8000   # streamable HTTP`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().IntP("port", "p", 8000, "HTTP listen port")
	cmd.Flags().Int("rate-limit", 0, "Requests per minute per client IP over HTTP (0 disables)")

	viper.BindPFlag("server.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.rate_limit", cmd.Flags().Lookup("rate-limit"))

	return cmd
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Logging, verbose)

	b, err := openBridge(ctx, cfg, logger, true)
	if err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	mcpSrv := pgmcp.NewMCPServer(b.resources, b.tools, cfg.Server, logger)
	logger.Info("bridge ready",
		"version", versionString(),
		"transport", cfg.Server.Transport,
		"resources", len(b.resources.Resources()),
		"tools", len(b.tools.Tools()),
	)

	switch cfg.Server.Transport {
	case "stdio":
		defer b.pool.Close()
		return mcpSrv.ServeStdio()
	case "http":
		srv := server.New(cfg.Server, mcpSrv.HTTPHandler(server.MCPPath), b.pool, logger)
		return srv.ListenAndServe(ctx)
	default:
		b.pool.Close()
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", cfg.Server.Transport)
	}
}
