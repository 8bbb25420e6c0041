package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/orrery-labs/orrery/internal/domain/audit"
)

// CallLog is the slice of the audit service the history handler needs.
type CallLog interface {
	List(ctx context.Context, tool string, limit, offset int) ([]audit.ToolCall, error)
	Count(ctx context.Context, tool string) (int, error)
}

// CallsHandler serves the tool-call history.
type CallsHandler struct {
	log CallLog
}

func NewCallsHandler(log CallLog) *CallsHandler {
	return &CallsHandler{log: log}
}

// ListCalls returns recorded tool calls, newest first. Supports ?tool=,
// ?limit= and ?offset=.
func (h *CallsHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	tool := r.URL.Query().Get("tool")
	page := parsePaginationParams(r)

	calls, err := h.log.List(r.Context(), tool, page.Limit, page.Offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list calls: %v", err))
		return
	}
	total, err := h.log.Count(r.Context(), tool)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count calls: %v", err))
		return
	}

	if calls == nil {
		calls = []audit.ToolCall{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": calls,
		"meta": map[string]int{
			"total":  total,
			"limit":  page.Limit,
			"offset": page.Offset,
		},
	})
}
