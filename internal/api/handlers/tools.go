package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orrery-labs/orrery/internal/domain/audit"
	"github.com/orrery-labs/orrery/internal/gateway"
)

// CallRecorder is the slice of the audit service the tools handler needs.
// Nil disables call logging.
type CallRecorder interface {
	Record(ctx context.Context, call audit.ToolCall) (string, error)
}

// ToolsHandler exposes the subprocess's tools over plain REST, translating
// each request into a tools/list or tools/call JSON-RPC round trip.
type ToolsHandler struct {
	relay    Relayer
	recorder CallRecorder
	nextID   atomic.Int64
}

func NewToolsHandler(relay Relayer, recorder CallRecorder) *ToolsHandler {
	h := &ToolsHandler{relay: relay, recorder: recorder}
	h.nextID.Store(1000)
	return h
}

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListTools relays tools/list and returns the tool catalog.
func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	resp, rpcErr := h.roundTrip(r.Context(), "tools/list", nil)
	if rpcErr != nil {
		writeError(w, http.StatusBadGateway, rpcErr.Message)
		return
	}

	var result struct {
		Tools []toolInfo `json:"tools"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		writeError(w, http.StatusBadGateway, "malformed tools/list response")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": result.Tools,
		"meta": map[string]int{"total": len(result.Tools)},
	})
}

// CallTool relays tools/call for the named tool. The request body is the
// tool's arguments object; an empty body means no arguments.
func (h *ToolsHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "tool name is required")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "request body must be a json object")
		return
	}

	params, _ := json.Marshal(map[string]any{ //nolint:errcheck
		"name":      name,
		"arguments": json.RawMessage(body),
	})

	start := time.Now()
	resp, rpcErr := h.roundTrip(r.Context(), "tools/call", params)
	if rpcErr != nil {
		h.record(r.Context(), name, body, rpcErr.Message, time.Since(start))
		writeError(w, http.StatusBadGateway, rpcErr.Message)
		return
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		writeError(w, http.StatusBadGateway, "malformed tools/call response")
		return
	}

	text := ""
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}

	if result.IsError {
		h.record(r.Context(), name, body, text, time.Since(start))
		writeError(w, http.StatusUnprocessableEntity, text)
		return
	}
	h.record(r.Context(), name, body, "", time.Since(start))

	data := any(text)
	if json.Valid([]byte(text)) {
		data = json.RawMessage(text)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// roundTrip sends one JSON-RPC request through the relay and unwraps the
// response envelope.
func (h *ToolsHandler) roundTrip(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *gateway.JSONRPCError) {
	id := h.nextID.Add(1)
	req, _ := json.Marshal(gateway.JSONRPCRequest{ //nolint:errcheck
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  params,
	})

	raw := h.relay.Call(ctx, req)

	var resp gateway.JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &gateway.JSONRPCError{Code: -32603, Message: "malformed relay response"}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (h *ToolsHandler) record(ctx context.Context, name string, args []byte, errText string, elapsed time.Duration) {
	if h.recorder == nil {
		return
	}
	call := audit.ToolCall{
		Tool:       name,
		Args:       args,
		Status:     audit.StatusOK,
		DurationMS: elapsed.Milliseconds(),
		Origin:     audit.OriginREST,
	}
	if errText != "" {
		call.Status = audit.StatusError
		call.Error = errText
	}
	if _, err := h.recorder.Record(ctx, call); err != nil {
		slog.Warn("tool call audit failed", "tool", name, "error", err)
	}
}
