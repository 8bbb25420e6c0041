package tool

import (
	"context"
	"encoding/json"
)

// ToolExecutor defines the runtime contract for executable tools.
// Params is the JSON arguments object; the result is a JSON document.
// A returned error means the tool itself failed; transports map it to a
// tool-error result, not a protocol failure.
type ToolExecutor interface {
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}
