package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/orrery-labs/orrery/internal/domain/audit"
	"github.com/orrery-labs/orrery/internal/gateway"
)

// maxRequestBodySize caps request bodies on the relay endpoints (1MB).
const maxRequestBodySize = 1 << 20

// Relayer is the slice of the gateway relay the handlers need.
type Relayer interface {
	Call(ctx context.Context, request json.RawMessage) json.RawMessage
	Status() gateway.Status
}

// RelayHandler serves the raw JSON-RPC passthrough and the status page.
type RelayHandler struct {
	relay    Relayer
	recorder CallRecorder
	version  string
}

func NewRelayHandler(relay Relayer, recorder CallRecorder, version string) *RelayHandler {
	return &RelayHandler{relay: relay, recorder: recorder, version: version}
}

// Call accepts one JSON-RPC request body and returns the subprocess's
// response. Relay failures come back as JSON-RPC error objects with
// HTTP 200, matching how MCP clients expect transport wrappers to behave.
func (h *RelayHandler) Call(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var env struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"params"`
	}
	parsed := json.Unmarshal(body, &env) == nil

	start := time.Now()
	resp := h.relay.Call(r.Context(), body)

	// Tool invocations passed through verbatim still land in the call log.
	if parsed && env.Method == "tools/call" {
		h.record(r.Context(), env.Params.Name, env.Params.Arguments, relayErrorText(resp), time.Since(start))
	}

	// Notifications expect no response body.
	if parsed && (len(env.ID) == 0 || string(env.ID) == "null") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)         //nolint:errcheck
	w.Write([]byte("\n")) //nolint:errcheck
}

func (h *RelayHandler) record(ctx context.Context, name string, args json.RawMessage, errText string, elapsed time.Duration) {
	if h.recorder == nil {
		return
	}
	call := audit.ToolCall{
		Tool:       name,
		Args:       args,
		Status:     audit.StatusOK,
		DurationMS: elapsed.Milliseconds(),
		Origin:     audit.OriginGateway,
	}
	if errText != "" {
		call.Status = audit.StatusError
		call.Error = errText
	}
	if _, err := h.recorder.Record(ctx, call); err != nil {
		slog.Warn("relayed call audit failed", "tool", name, "error", err)
	}
}

// relayErrorText extracts the failure text from a relayed tools/call
// response: the JSON-RPC error message, or the first content block when
// the tool reported isError. Empty means success.
func relayErrorText(resp json.RawMessage) string {
	var parsed struct {
		Error  *gateway.JSONRPCError `json:"error"`
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return "malformed relay response"
	}
	if parsed.Error != nil {
		return parsed.Error.Message
	}
	if parsed.Result.IsError {
		if len(parsed.Result.Content) > 0 {
			return parsed.Result.Content[0].Text
		}
		return "tool error"
	}
	return ""
}

// Status reports the gateway and its supervised subprocess.
func (h *RelayHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "orrery-gateway",
		"version":    h.version,
		"subprocess": h.relay.Status(),
	})
}
