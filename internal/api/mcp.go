package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/chatrelay/internal/relay"
)

// NewMCPServer creates an MCP server exposing the relay's chat and health
// operations as tools.
func NewMCPServer(rl *relay.Relay, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"chatrelay",
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("chatrelay forwards a single user message to a local Ollama model and returns the raw response."),
		server.WithRecovery(),
	)

	d := rl.Defaults()
	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Send one user message to the local Ollama server and return its JSON response."),
			mcp.WithString("user_message", mcp.Description(fmt.Sprintf("Message text (default %q)", d.Message))),
			mcp.WithString("model_name", mcp.Description(fmt.Sprintf("Ollama model name (default %q)", d.Model))),
		),
		mcpChat(rl),
	)

	s.AddTool(
		mcp.NewTool("health",
			mcp.WithDescription("Check whether the local Ollama server is reachable."),
		),
		mcpHealth(rl),
	)

	return s
}

func mcpChat(rl *relay.Relay) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var in relay.ChatInput
		args := req.GetArguments()
		for key, dst := range map[string]**string{
			"user_message": &in.UserMessage,
			"model_name":   &in.ModelName,
		} {
			v, ok := args[key]
			if !ok || v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return mcpError(fmt.Sprintf("%s must be a string", key)), nil
			}
			*dst = &s
		}

		body, err := rl.Chat(ctx, in)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(string(body)), nil
	}
}

func mcpHealth(rl *relay.Relay) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := rl.Health(ctx)
		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal health result: %v", err)), nil
		}
		if !res.Healthy() {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
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
