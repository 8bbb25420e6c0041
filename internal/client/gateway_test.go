package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orrery-labs/orrery/internal/gateway"
)

// newFakeGateway serves the gateway's raw endpoints for client tests.
func newFakeGateway(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"service": "orrery-gateway",
			"version": "test",
			"subprocess": gateway.Status{
				Running: true,
				PID:     99,
			},
		})
	})
	mux.HandleFunc("POST /call", func(w http.ResponseWriter, r *http.Request) {
		var req gateway.JSONRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.Write(gateway.ErrorResponse(nil, -32700, "parse error")) //nolint:errcheck
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "tools/list":
			writeResult(w, req.ID, `{"tools":[{"name":"get_astronomy_picture_of_the_day","description":"APOD","inputSchema":{"type":"object"}}]}`)
		case "tools/call":
			var params struct {
				Name string `json:"name"`
			}
			json.Unmarshal(req.Params, &params) //nolint:errcheck
			if params.Name == "flaky" {
				writeResult(w, req.ID, `{"content":[{"type":"text","text":"boom"}],"isError":true}`)
				return
			}
			writeResult(w, req.ID, `{"content":[{"type":"text","text":"{\"title\":\"Pillars\"}"}]}`)
		default:
			w.Write(gateway.ErrorResponse(req.ID, -32601, "method not found")) //nolint:errcheck
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result string) {
	json.NewEncoder(w).Encode(gateway.JSONRPCResponse{ //nolint:errcheck
		JSONRPC: "2.0",
		ID:      id,
		Result:  json.RawMessage(result),
	})
}

func TestGatewayClientStatus(t *testing.T) {
	t.Parallel()

	srv := newFakeGateway(t)
	c := NewGatewayClient(srv.URL)

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Service != "orrery-gateway" {
		t.Errorf("service = %q", status.Service)
	}
	if !status.Subprocess.Running || status.Subprocess.PID != 99 {
		t.Errorf("subprocess = %+v", status.Subprocess)
	}
}

func TestGatewayClientListTools(t *testing.T) {
	t.Parallel()

	srv := newFakeGateway(t)
	c := NewGatewayClient(srv.URL)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "get_astronomy_picture_of_the_day" {
		t.Errorf("tools = %+v", tools)
	}
}

func TestGatewayClientCallTool(t *testing.T) {
	t.Parallel()

	srv := newFakeGateway(t)
	c := NewGatewayClient(srv.URL)

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		res, err := c.CallTool(context.Background(), "get_astronomy_picture_of_the_day", json.RawMessage(`{"date":"2024-06-15"}`))
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if res.IsError {
			t.Error("IsError = true")
		}
		var body map[string]string
		if err := json.Unmarshal([]byte(res.Text), &body); err != nil {
			t.Fatalf("result text %q: %v", res.Text, err)
		}
		if body["title"] != "Pillars" {
			t.Errorf("title = %q", body["title"])
		}
	})

	t.Run("tool error", func(t *testing.T) {
		t.Parallel()

		res, err := c.CallTool(context.Background(), "flaky", nil)
		if err != nil {
			t.Fatalf("CallTool() error = %v", err)
		}
		if !res.IsError || res.Text != "boom" {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestGatewayClientRPCError(t *testing.T) {
	t.Parallel()

	srv := newFakeGateway(t)
	c := NewGatewayClient(srv.URL)

	raw, err := c.RawCall(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"bogus"}`))
	if err != nil {
		t.Fatalf("RawCall() error = %v", err)
	}

	var resp gateway.JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("error = %+v, want method-not-found", resp.Error)
	}
}
