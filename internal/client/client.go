// Package client contains the thin consumer side of orrery: an HTTP
// client for the gateway, a stdio MCP client that spawns servers as
// subprocesses, and the natural-language ask flow that mediates between
// an LLM and the tools.
package client

import (
	"context"
	"encoding/json"
)

// ToolInfo describes one tool as advertised by a server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolResult is a completed tool invocation.
type ToolResult struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// ToolCaller is implemented by both the gateway HTTP client and the
// stdio client, so the ask flow works against either transport.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}
