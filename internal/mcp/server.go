// Package mcp exposes the tool registry as a Model Context Protocol
// server over stdio, streamable HTTP, or SSE transports.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orrery-labs/orrery/internal/domain/audit"
	"github.com/orrery-labs/orrery/internal/domain/tool"
)

// callRecorder is the slice of the audit service the server needs.
// A nil recorder disables call logging.
type callRecorder interface {
	Record(ctx context.Context, call audit.ToolCall) (string, error)
}

// Server wraps an MCP server built from a tool registry.
type Server struct {
	registry *tool.ToolRegistry
	recorder callRecorder
	srv      *mcpsdk.Server
}

// NewServer builds an MCP server exposing every tool in the registry.
// Stored JSON Schemas are passed through unchanged so clients see the
// same schemas the REST surface and LLM specs use.
func NewServer(name, version string, registry *tool.ToolRegistry, recorder callRecorder) (*Server, error) {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	s := &Server{registry: registry, recorder: recorder, srv: srv}

	for _, def := range registry.List() {
		schema := new(jsonschema.Schema)
		if err := json.Unmarshal(def.InputSchema, schema); err != nil {
			return nil, fmt.Errorf("tool %q: parse input schema: %w", def.Name, err)
		}
		srv.AddTool(&mcpsdk.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		}, s.handlerFor(def.Name))
	}

	return s, nil
}

// Run serves MCP sessions on the given transport until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return s.srv.Run(ctx, transport)
}

// RunStdio serves a single session over stdin/stdout. This is the mode a
// gateway or desktop client uses when spawning the server as a subprocess.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.srv.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect attaches the server to a transport and returns the session.
// Used by tests with in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.srv.Connect(ctx, transport, nil)
}

// StreamableHTTPHandler returns an http.Handler speaking the streamable
// HTTP transport. Every request is routed to this server.
func (s *Server) StreamableHTTPHandler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.srv
	}, nil)
}

// SSEHandler returns an http.Handler speaking the legacy SSE transport.
func (s *Server) SSEHandler() http.Handler {
	return mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server {
		return s.srv
	}, nil)
}

// handlerFor adapts a registry tool to an MCP tool handler. Executor
// errors become tool results with IsError set rather than protocol
// errors, so the calling model can read and react to them.
func (s *Server) handlerFor(name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		params := rawArguments(req.Params.Arguments)

		start := time.Now()
		out, err := s.registry.Execute(ctx, name, params)
		s.record(ctx, name, params, err, time.Since(start))

		if err != nil {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(out)}},
		}, nil
	}
}

func (s *Server) record(ctx context.Context, name string, params json.RawMessage, execErr error, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	call := audit.ToolCall{
		Tool:       name,
		Args:       params,
		Status:     audit.StatusOK,
		DurationMS: elapsed.Milliseconds(),
		Origin:     audit.OriginMCP,
	}
	if execErr != nil {
		call.Status = audit.StatusError
		call.Error = execErr.Error()
	}
	if _, err := s.recorder.Record(ctx, call); err != nil {
		slog.Warn("tool call audit failed", "tool", name, "error", err)
	}
}

// rawArguments normalizes the SDK's argument payload to raw JSON.
func rawArguments(v any) json.RawMessage {
	switch a := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return a
	case []byte:
		return a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return nil
		}
		return b
	}
}
