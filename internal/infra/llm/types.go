// Package llm defines the model-agnostic LLM provider abstraction used by
// the ask flow. All types here are shared between the provider interface
// and its adapters.
package llm

import "encoding/json"

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant" | "tool"
	Content string
}

// ToolSpec advertises a callable tool to the model. Parameters is a JSON
// Schema object, the same schema the tool registry stores; specs are
// built straight from tool definitions.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage // JSON object matching the tool's schema
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	Messages    []Message
	Tools       []ToolSpec // empty = plain completion, no function calling
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
// When the model chose to call tools, ToolCalls is non-empty and Content
// may be empty.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string // "stop" | "length" | "tool_calls" | "error"
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "llama3.2:3b"
	Provider  string // e.g. "ollama"
	Version   string
	MaxTokens int // maximum context window size
}
