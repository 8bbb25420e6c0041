package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orrery-labs/orrery/internal/domain/audit"
	"github.com/orrery-labs/orrery/internal/domain/tool"
)

type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return params, nil
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, json.RawMessage) (json.RawMessage, error) {
	return nil, errors.New("upstream unavailable")
}

type memRecorder struct {
	calls []audit.ToolCall
}

func (m *memRecorder) Record(_ context.Context, call audit.ToolCall) (string, error) {
	m.calls = append(m.calls, call)
	return fmt.Sprintf("call-%d", len(m.calls)), nil
}

func newTestRegistry(t *testing.T) *tool.ToolRegistry {
	t.Helper()

	r := tool.NewToolRegistry()
	schema := json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"],"additionalProperties":false}`)
	if err := r.Register(tool.Definition{
		Name:        "echo",
		Description: "Echo the arguments back.",
		InputSchema: schema,
	}, echoExecutor{}); err != nil {
		t.Fatalf("register echo: %v", err)
	}
	if err := r.Register(tool.Definition{
		Name:        "flaky",
		Description: "Always fails.",
	}, failingExecutor{}); err != nil {
		t.Fatalf("register flaky: %v", err)
	}
	return r
}

// connect wires a server and client over in-memory transports.
func connect(t *testing.T, srv *Server) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	session, err := srv.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		cs.Close()     //nolint:errcheck
		session.Wait() //nolint:errcheck
	})
	return cs
}

func TestServerListTools(t *testing.T) {
	t.Parallel()

	srv, err := NewServer("orrery-test", "0.0.1", newTestRegistry(t), nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	cs := connect(t, srv)

	res, err := cs.ListTools(context.Background(), &mcpsdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(res.Tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(res.Tools))
	}

	names := map[string]bool{}
	for _, tl := range res.Tools {
		names[tl.Name] = true
	}
	for _, want := range []string{"echo", "flaky"} {
		if !names[want] {
			t.Errorf("ListTools() missing %q", want)
		}
	}
}

func TestServerCallTool(t *testing.T) {
	t.Parallel()

	t.Run("success returns tool output", func(t *testing.T) {
		t.Parallel()

		rec := &memRecorder{}
		srv, err := NewServer("orrery-test", "0.0.1", newTestRegistry(t), rec)
		if err != nil {
			t.Fatalf("NewServer() error = %v", err)
		}
		cs := connect(t, srv)

		res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
			Name:      "echo",
			Arguments: map[string]any{"q": "hello"},
		})
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if res.IsError {
			t.Fatalf("CallTool() IsError = true, content: %+v", res.Content)
		}

		text := textContent(t, res)
		var got map[string]string
		if err := json.Unmarshal([]byte(text), &got); err != nil {
			t.Fatalf("unmarshal tool output %q: %v", text, err)
		}
		if got["q"] != "hello" {
			t.Errorf("echoed q = %q, want %q", got["q"], "hello")
		}

		if len(rec.calls) != 1 {
			t.Fatalf("recorded %d calls, want 1", len(rec.calls))
		}
		if rec.calls[0].Tool != "echo" || rec.calls[0].Status != audit.StatusOK {
			t.Errorf("unexpected audit row: %+v", rec.calls[0])
		}
		if rec.calls[0].Origin != audit.OriginMCP {
			t.Errorf("origin = %q, want %q", rec.calls[0].Origin, audit.OriginMCP)
		}
	})

	t.Run("executor error becomes tool error result", func(t *testing.T) {
		t.Parallel()

		rec := &memRecorder{}
		srv, err := NewServer("orrery-test", "0.0.1", newTestRegistry(t), rec)
		if err != nil {
			t.Fatalf("NewServer() error = %v", err)
		}
		cs := connect(t, srv)

		res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: "flaky"})
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if !res.IsError {
			t.Fatal("CallTool() IsError = false, want true")
		}
		if text := textContent(t, res); text != "upstream unavailable" {
			t.Errorf("error text = %q", text)
		}
		if len(rec.calls) != 1 || rec.calls[0].Status != audit.StatusError {
			t.Errorf("unexpected audit rows: %+v", rec.calls)
		}
	})

	t.Run("validation failure is a tool error", func(t *testing.T) {
		t.Parallel()

		srv, err := NewServer("orrery-test", "0.0.1", newTestRegistry(t), nil)
		if err != nil {
			t.Fatalf("NewServer() error = %v", err)
		}
		cs := connect(t, srv)

		res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
			Name:      "echo",
			Arguments: map[string]any{"wrong": true},
		})
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if !res.IsError {
			t.Error("CallTool() IsError = false, want true")
		}
	})
}

func TestNewServerRejectsBadSchema(t *testing.T) {
	t.Parallel()

	r := tool.NewToolRegistry()
	if err := r.Register(tool.Definition{
		Name:        "bad",
		InputSchema: json.RawMessage(`{"type":123}`),
	}, echoExecutor{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := NewServer("orrery-test", "0.0.1", r, nil); err == nil {
		t.Error("NewServer() error = nil, want schema parse error")
	}
}

func TestHTTPHandlers(t *testing.T) {
	t.Parallel()

	srv, err := NewServer("orrery-test", "0.0.1", newTestRegistry(t), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	if srv.StreamableHTTPHandler() == nil {
		t.Error("StreamableHTTPHandler() = nil")
	}
	if srv.SSEHandler() == nil {
		t.Error("SSEHandler() = nil")
	}
}

func textContent(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *TextContent", res.Content[0])
	}
	return tc.Text
}
