// LLMProvider interface. Adapters (Ollama today, cloud vendors later)
// implement this so the ask flow is never coupled to a specific vendor.
package llm

import "context"

// LLMProvider is the model-agnostic interface for LLM operations.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion. When the
	// request carries tool specs, the response may contain tool calls
	// instead of text.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
