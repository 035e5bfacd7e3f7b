package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/validate"
)

func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("qrforge_list_kinds",
			mcp.WithDescription(
				"List every supported QR content kind. Use this to discover which "+
					"kinds exist before validating or creating content.",
			),
		),
		s.handleListKinds,
	)

	srv.AddTool(
		mcp.NewTool("qrforge_validate_content",
			mcp.WithDescription(
				"Validate a structured content payload against the rules for its kind "+
					"without creating anything. Returns the field-level error when the "+
					"payload is invalid.",
			),
			mcp.WithString("kind",
				mcp.Required(),
				mcp.Description("Content kind, e.g. url, wifi, vcard, event, geo"),
			),
			mcp.WithObject("content",
				mcp.Required(),
				mcp.Description("The structured payload to validate"),
			),
		),
		s.handleValidateContent,
	)

	srv.AddTool(
		mcp.NewTool("qrforge_create_qr",
			mcp.WithDescription(
				"Create a QR code from a content kind and payload. The payload is "+
					"validated first; the call counts against the API key's rate limit "+
					"and monthly quota like any other request.",
			),
			mcp.WithString("kind",
				mcp.Required(),
				mcp.Description("Content kind for the QR code"),
			),
			mcp.WithObject("content",
				mcp.Required(),
				mcp.Description("The structured payload for the kind"),
			),
			mcp.WithString("name",
				mcp.Description("Human-readable name for the QR code"),
			),
		),
		s.handleCreateQR,
	)

	srv.AddTool(
		mcp.NewTool("qrforge_list_qr",
			mcp.WithDescription("List the account's QR codes, newest first."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of codes to return (default 25, max 100)"),
			),
		),
		s.handleListQR,
	)
}

func (s *MCPServer) handleListKinds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successJSON(map[string]any{"kinds": validate.Kinds()})
}

func (s *MCPServer) handleValidateContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := request.RequireString("kind")
	if err != nil {
		return toolError("missing required parameter %q", "kind")
	}
	content := objectArg(request, "content")

	if err := validate.Content(content, kind); err != nil {
		return successJSON(map[string]any{"valid": false, "error": err.Error()})
	}
	return successJSON(map[string]any{"valid": true})
}

func (s *MCPServer) handleCreateQR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := request.RequireString("kind")
	if err != nil {
		return toolError("missing required parameter %q", "kind")
	}
	content := objectArg(request, "content")
	name := request.GetString("name", "")

	identity, errResult := s.authenticate(ctx)
	if errResult != nil {
		return errResult, nil
	}

	if err := validate.Content(content, kind); err != nil {
		return toolError("content validation failed: %s", err)
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return toolError("content is not serializable: %s", err)
	}

	qr := &model.QRCode{
		AccountID: identity.AccountID,
		Name:      name,
		Kind:      kind,
		Content:   string(contentJSON),
		ShortCode: newShortCode(),
	}
	if err := s.store.CreateQRCode(ctx, qr); err != nil {
		return toolError("failed to create QR code: %s", err)
	}

	if err := s.auth.Quota().RecordUsage(ctx, identity.KeyHash); err != nil {
		s.logger.Error("failed to record key usage", "error", err)
	}
	return successJSON(qr)
}

func (s *MCPServer) handleListQR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clamp(request.GetInt("limit", 25), 1, 100)

	identity, errResult := s.authenticate(ctx)
	if errResult != nil {
		return errResult, nil
	}

	codes, err := s.store.ListQRCodes(ctx, identity.AccountID, limit, 0)
	if err != nil {
		return toolError("failed to list QR codes: %s", err)
	}

	if err := s.auth.Quota().RecordUsage(ctx, identity.KeyHash); err != nil {
		s.logger.Error("failed to record key usage", "error", err)
	}
	return successJSON(map[string]any{"qr_codes": codes, "count": len(codes)})
}

// authenticate runs the configured API key through the full gatekeeper
// pipeline. Tool-level errors are returned to the model so it can report
// them instead of terminating the session.
func (s *MCPServer) authenticate(ctx context.Context) (*model.Identity, *mcp.CallToolResult) {
	if s.apiKey == "" {
		result, _ := toolError("no API key configured; start the MCP server with an API key")
		return nil, result
	}

	identity, denial, err := s.auth.Authenticate(ctx, "Bearer "+s.apiKey, "")
	if err != nil {
		result, _ := toolError("record store unavailable, retry shortly")
		return nil, result
	}
	if denial != nil {
		result, _ := toolError("request denied: %s", denialMessage(denial))
		return nil, result
	}
	return identity, nil
}

// denialMessage maps a denial to the same public wording the HTTP surface
// uses; the private detail stays in the server log.
func denialMessage(d *auth.Denial) string {
	switch d.Reason {
	case auth.DenialMalformedCredential:
		return "malformed API key"
	case auth.DenialRateLimited:
		return "rate limit exceeded, retry after the window resets"
	case auth.DenialQuotaExceeded:
		return "monthly request quota exceeded"
	default:
		return "invalid API key"
	}
}

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result, visible to the model.
func toolError(format string, args ...any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// objectArg extracts a map argument from the tool request.
func objectArg(request mcp.CallToolRequest, key string) map[string]any {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	m, _ := args[key].(map[string]any)
	return m
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// newShortCode mirrors the HTTP handler's short code shape.
func newShortCode() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
