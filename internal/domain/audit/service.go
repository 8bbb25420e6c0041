// Package audit records tool invocations in the tool_call table.
// All operations are append-only; no updates or deletes are supported.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orrery-labs/orrery/pkg/uuid"
)

// Service writes and reads the tool-call log.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record appends a tool invocation to the log and returns its ID.
// A logging failure must never fail the tool call itself; callers are
// expected to log and continue on error.
func (s *Service) Record(ctx context.Context, call ToolCall) (string, error) {
	if call.ID == "" {
		call.ID = uuid.NewV7().String()
	}
	if call.Status == "" {
		call.Status = StatusOK
	}
	if len(call.Args) == 0 {
		call.Args = json.RawMessage(`{}`)
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_call (id, tool, args, status, error, duration_ms, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.Tool, string(call.Args), string(call.Status),
		call.Error, call.DurationMS, string(call.Origin),
		call.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("audit record %s: %w", call.Tool, err)
	}
	return call.ID, nil
}

// List returns recent tool calls, newest first. An empty tool matches all
// tools. Limit defaults to 50 and is capped at 500.
func (s *Service) List(ctx context.Context, tool string, limit, offset int) ([]ToolCall, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, tool, args, status, error, duration_ms, origin, created_at
		 FROM tool_call`
	args := []any{}
	if tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var calls []ToolCall
	for rows.Next() {
		call, err := scanToolCall(rows)
		if err != nil {
			return nil, fmt.Errorf("audit list: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// Count returns the number of recorded calls, optionally filtered by tool.
func (s *Service) Count(ctx context.Context, tool string) (int, error) {
	query := `SELECT COUNT(*) FROM tool_call`
	args := []any{}
	if tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("audit count: %w", err)
	}
	return n, nil
}

func scanToolCall(rows *sql.Rows) (ToolCall, error) {
	var (
		call      ToolCall
		args      string
		status    string
		origin    string
		createdAt string
	)
	if err := rows.Scan(&call.ID, &call.Tool, &args, &status,
		&call.Error, &call.DurationMS, &origin, &createdAt); err != nil {
		return ToolCall{}, fmt.Errorf("scan: %w", err)
	}
	call.Args = json.RawMessage(args)
	call.Status = Status(status)
	call.Origin = Origin(origin)

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ToolCall{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	call.CreatedAt = ts
	return call, nil
}
