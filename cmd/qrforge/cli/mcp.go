package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	qmcp "github.com/BenTyson/qrforge-sub000/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		apiKey    string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes QR code operations
as tools for AI agents. Supports stdio (default) and HTTP transports.

The MCP server authenticates with a regular API key; every tool call goes
through the same gatekeeper as the REST API, including rate limits and the
monthly quota.`,
		Example: `  qrforge mcp --api-key qrf_...                      # stdio mode
  qrforge mcp --transport http --port 3001 --api-key qrf_...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, apiKey)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for tool calls (or QRFORGE_API_KEY)")

	return cmd
}

func runMCP(transport string, port int, apiKey string) error {
	if apiKey == "" {
		apiKey = os.Getenv("QRFORGE_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("an API key is required; pass --api-key or set QRFORGE_API_KEY")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	authSvc := newAuthService(cfg, st, logger)
	mcpSrv := qmcp.NewMCPServer(st, authSvc, apiKey, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
