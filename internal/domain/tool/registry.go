package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrToolNotRegistered     = errors.New("tool not registered")
	ErrToolValidationFailed  = errors.New("tool params validation failed")
)

// Definition describes a tool to clients: its name, human description,
// and a JSON Schema for the arguments object. The same definition feeds
// the MCP server, the REST surface, and the LLM tool specs.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ToolRegistry maps tool names to definitions and executors.
// Registration happens once at startup; reads are not synchronized.
type ToolRegistry struct {
	order     []string
	defs      map[string]Definition
	executors map[string]ToolExecutor
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		defs:      make(map[string]Definition),
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool definition with its executor.
// An empty schema defaults to an object schema with no properties.
func (r *ToolRegistry) Register(def Definition, executor ToolExecutor) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" || executor == nil {
		return ErrToolNotRegistered
	}
	if _, exists := r.executors[def.Name]; exists {
		return ErrToolAlreadyRegistered
	}

	if len(def.InputSchema) == 0 {
		def.InputSchema = json.RawMessage(`{"type":"object","additionalProperties":false,"properties":{}}`)
	}
	if !json.Valid(def.InputSchema) {
		return fmt.Errorf("tool %q: input schema must be valid json", def.Name)
	}

	r.order = append(r.order, def.Name)
	r.defs[def.Name] = def
	r.executors[def.Name] = executor
	return nil
}

// Get returns the executor for a tool name.
func (r *ToolRegistry) Get(name string) (ToolExecutor, error) {
	executor, ok := r.executors[name]
	if !ok {
		return nil, ErrToolNotRegistered
	}
	return executor, nil
}

// Definition returns the definition for a tool name.
func (r *ToolRegistry) Definition(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, ErrToolNotRegistered
	}
	return def, nil
}

// List returns all definitions in registration order.
func (r *ToolRegistry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// ValidateParams checks params against the tool's stored schema:
// required keys must be present, and unknown keys are rejected when the
// schema sets additionalProperties=false. Type checks are left to the
// executors, which decode into concrete structs anyway.
func (r *ToolRegistry) ValidateParams(name string, params json.RawMessage) error {
	def, ok := r.defs[name]
	if !ok {
		return ErrToolNotRegistered
	}

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	var input map[string]any
	if err := json.Unmarshal(params, &input); err != nil {
		return fmt.Errorf("%w: params must be a json object", ErrToolValidationFailed)
	}

	var schema map[string]any
	if err := json.Unmarshal(def.InputSchema, &schema); err != nil {
		return fmt.Errorf("%w: invalid stored schema", ErrToolValidationFailed)
	}

	return validateAgainstMinimalSchema(input, schema)
}

// Execute validates params and runs the tool's executor.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (json.RawMessage, error) {
	if err := r.ValidateParams(name, params); err != nil {
		return nil, err
	}
	executor, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return executor.Execute(ctx, params)
}

func validateAgainstMinimalSchema(input, schema map[string]any) error {
	requiredKeys := extractStringSlice(schema["required"])
	for _, key := range requiredKeys {
		if _, ok := input[key]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrToolValidationFailed, key)
		}
	}

	allowAdditional := true
	if v, ok := schema["additionalProperties"].(bool); ok {
		allowAdditional = v
	}

	allowedProps := map[string]struct{}{}
	if props, ok := schema["properties"].(map[string]any); ok {
		for key := range props {
			allowedProps[key] = struct{}{}
		}
	}

	if !allowAdditional {
		for key := range input {
			if _, ok := allowedProps[key]; !ok {
				return fmt.Errorf("%w: unknown field %q", ErrToolValidationFailed, key)
			}
		}
	}

	return nil
}

func extractStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
