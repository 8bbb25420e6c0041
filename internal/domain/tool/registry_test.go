package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type echoExecutor struct {
	calls int
}

func (e *echoExecutor) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	e.calls++
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return params, nil
}

func TestToolRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate names", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		def := Definition{Name: "echo"}
		if err := r.Register(def, &echoExecutor{}); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		if err := r.Register(def, &echoExecutor{}); !errors.Is(err, ErrToolAlreadyRegistered) {
			t.Errorf("second Register() error = %v, want ErrToolAlreadyRegistered", err)
		}
	})

	t.Run("rejects empty name and nil executor", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if err := r.Register(Definition{Name: "  "}, &echoExecutor{}); err == nil {
			t.Error("Register() with blank name: error = nil")
		}
		if err := r.Register(Definition{Name: "echo"}, nil); err == nil {
			t.Error("Register() with nil executor: error = nil")
		}
	})

	t.Run("empty schema defaults to closed object", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if err := r.Register(Definition{Name: "echo"}, &echoExecutor{}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := r.ValidateParams("echo", json.RawMessage(`{"extra":1}`)); !errors.Is(err, ErrToolValidationFailed) {
			t.Errorf("ValidateParams() error = %v, want ErrToolValidationFailed", err)
		}
		if err := r.ValidateParams("echo", nil); err != nil {
			t.Errorf("ValidateParams(nil) error = %v, want nil", err)
		}
	})

	t.Run("rejects invalid schema json", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		err := r.Register(Definition{Name: "echo", InputSchema: json.RawMessage(`{not json`)}, &echoExecutor{})
		if err == nil {
			t.Error("Register() with malformed schema: error = nil")
		}
	})
}

func TestToolRegistryList(t *testing.T) {
	t.Parallel()

	r := NewToolRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(Definition{Name: name}, &echoExecutor{}); err != nil {
			t.Fatalf("Register(%q) error = %v", name, err)
		}
	}

	defs := r.List()
	if len(defs) != 3 {
		t.Fatalf("List() returned %d definitions, want 3", len(defs))
	}
	// registration order, not sorted
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if defs[i].Name != want {
			t.Errorf("List()[%d].Name = %q, want %q", i, defs[i].Name, want)
		}
	}
}

func TestToolRegistryValidateParams(t *testing.T) {
	t.Parallel()

	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"area": {"type": "string"}
		},
		"required": ["area"],
		"additionalProperties": false
	}`)

	r := NewToolRegistry()
	if err := r.Register(Definition{Name: "alerts", InputSchema: schema}, &echoExecutor{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name    string
		params  string
		wantErr bool
	}{
		{"all required present", `{"area":"CA"}`, false},
		{"missing required", `{}`, true},
		{"unknown field", `{"area":"CA","zip":"90210"}`, true},
		{"non object params", `[1,2]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := r.ValidateParams("alerts", json.RawMessage(tt.params))
			if tt.wantErr && !errors.Is(err, ErrToolValidationFailed) {
				t.Errorf("ValidateParams() error = %v, want ErrToolValidationFailed", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateParams() error = %v, want nil", err)
			}
		})
	}

	if err := r.ValidateParams("missing", nil); !errors.Is(err, ErrToolNotRegistered) {
		t.Errorf("ValidateParams(unknown tool) error = %v, want ErrToolNotRegistered", err)
	}
}

func TestToolRegistryExecute(t *testing.T) {
	t.Parallel()

	t.Run("validates before running", func(t *testing.T) {
		t.Parallel()

		exec := &echoExecutor{}
		r := NewToolRegistry()
		schema := json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"],"additionalProperties":false}`)
		if err := r.Register(Definition{Name: "echo", InputSchema: schema}, exec); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if _, err := r.Execute(context.Background(), "echo", json.RawMessage(`{}`)); !errors.Is(err, ErrToolValidationFailed) {
			t.Errorf("Execute() error = %v, want ErrToolValidationFailed", err)
		}
		if exec.calls != 0 {
			t.Errorf("executor ran %d times despite validation failure", exec.calls)
		}

		out, err := r.Execute(context.Background(), "echo", json.RawMessage(`{"q":"hi"}`))
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if string(out) != `{"q":"hi"}` {
			t.Errorf("Execute() output = %s", out)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if _, err := r.Execute(context.Background(), "nope", nil); !errors.Is(err, ErrToolNotRegistered) {
			t.Errorf("Execute() error = %v, want ErrToolNotRegistered", err)
		}
	})
}

func TestRegisterBuiltinSplit(t *testing.T) {
	t.Parallel()

	svcs := BuiltinServices{
		APOD:     &fakeAPOD{},
		Rover:    &fakeRover{},
		NEO:      &fakeNEO{},
		Alerts:   &fakeAlerts{},
		Forecast: &fakeForecast{},
	}

	t.Run("nasa server tools", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if err := RegisterNASATools(r, svcs); err != nil {
			t.Fatalf("RegisterNASATools() error = %v", err)
		}
		names := listNames(r)
		want := []string{BuiltinAPOD, BuiltinRoverPhotos, BuiltinNEO}
		if len(names) != len(want) {
			t.Fatalf("got tools %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("tool[%d] = %q, want %q", i, names[i], want[i])
			}
		}
	})

	t.Run("weather server tools", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if err := RegisterWeatherTools(r, svcs); err != nil {
			t.Fatalf("RegisterWeatherTools() error = %v", err)
		}
		names := listNames(r)
		if len(names) != 2 || names[0] != BuiltinWeatherAlerts || names[1] != BuiltinForecast {
			t.Errorf("got tools %v", names)
		}
	})

	t.Run("all tools", func(t *testing.T) {
		t.Parallel()

		r := NewToolRegistry()
		if err := RegisterAllTools(r, svcs); err != nil {
			t.Fatalf("RegisterAllTools() error = %v", err)
		}
		if got := len(r.List()); got != 5 {
			t.Errorf("registered %d tools, want 5", got)
		}
	})
}

func listNames(r *ToolRegistry) []string {
	defs := r.List()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}
