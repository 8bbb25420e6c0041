package audit

import (
	"encoding/json"
	"time"
)

// Status represents the outcome of a tool invocation
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Origin represents which surface triggered the invocation
type Origin string

const (
	OriginGateway Origin = "gateway"
	OriginREST    Origin = "rest"
	OriginMCP     Origin = "mcp"
)

// ToolCall is a single tool invocation record.
// Rows are append-only; once written they are never modified.
type ToolCall struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Args       json.RawMessage `json:"args"`
	Status     Status          `json:"status"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Origin     Origin          `json:"origin"`
	CreatedAt  time.Time       `json:"created_at"`
}
