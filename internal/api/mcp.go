package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/gemini"
	"github.com/kalambet/folio/internal/profile"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Assistant Assistant
	Profile   *profile.Snapshot
	Version   string
}

// NewMCPServer creates an MCP server exposing the assistant as tools and the
// profile context as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(fmt.Sprintf("folio answers questions about %s's professional profile and drafts contact messages.", deps.Profile.OwnerName())),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_about_owner",
			mcp.WithDescription(fmt.Sprintf("Ask a question about %s's experience, skills or education.", deps.Profile.OwnerName())),
			mcp.WithString("question", mcp.Description("The visitor's question"), mcp.Required()),
			mcp.WithString("history", mcp.Description("Optional JSON array of prior {role, text} turns, oldest first")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("draft_contact_message",
			mcp.WithDescription("Draft a short, ready-to-send contact message from a one-line intent."),
			mcp.WithString("intent", mcp.Description("What the visitor wants to say, e.g. 'hire for a data project'"), mcp.Required()),
		),
		mcpDraft(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://context",
			"Profile Context",
			mcp.WithResourceDescription("The serialized profile used to ground the assistant"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceContext(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcpError("question is required"), nil
		}

		var history []composer.Turn
		if raw := req.GetString("history", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return mcpError(fmt.Sprintf("invalid history JSON: %v", err)), nil
			}
		}

		reply, err := deps.Assistant.Ask(ctx, history, question)
		if errors.Is(err, composer.ErrInvalidTurn) {
			return mcpError(err.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcpReply(reply.Outcome), nil
	}
}

func mcpDraft(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		intent, err := req.RequireString("intent")
		if err != nil || strings.TrimSpace(intent) == "" {
			return mcpError("intent is required"), nil
		}
		reply := deps.Assistant.Draft(ctx, intent)
		return mcpReply(reply.Outcome), nil
	}
}

func mcpResourceContext(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     deps.Profile.Context(),
			},
		}, nil
	}
}

// mcpReply returns the display text; degraded outcomes are flagged as errors
// so agents can tell a fallback from a real answer.
func mcpReply(out gemini.Outcome) *mcp.CallToolResult {
	if out.Degraded() {
		return mcpError(out.Display())
	}
	return mcpText(out.Display())
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
