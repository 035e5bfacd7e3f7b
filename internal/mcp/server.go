// Package mcp exposes QR code creation over the Model Context Protocol so
// AI agents can drive the programmatic API. Tool calls that touch state
// authenticate through the same gatekeeper pipeline as HTTP clients: the
// configured API key is subject to the rate limit, quota, and tier gate.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// MCPServer wraps the mcp-go server with QRForge tool registrations.
type MCPServer struct {
	store  *store.Store
	auth   *auth.Service
	apiKey string // raw API key used to authenticate tool calls
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with the QRForge tools.
// apiKey is the raw secret the server presents to the gatekeeper for every
// stateful tool call.
func NewMCPServer(st *store.Store, authSvc *auth.Service, apiKey string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:  st,
		auth:   authSvc,
		apiKey: apiKey,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"QRForge API",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go server instance, useful for tests.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, the integration path for
// clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode on addr.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}
