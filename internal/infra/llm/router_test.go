package llm

import (
	"context"
	"testing"
)

type fakeProvider struct {
	id string
}

func (f *fakeProvider) ChatCompletion(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: f.id}, nil
}
func (f *fakeProvider) ModelInfo() ModelMeta                { return ModelMeta{ID: f.id} }
func (f *fakeProvider) HealthCheck(_ context.Context) error { return nil }

func TestRoute_ReturnsDefaultProvider(t *testing.T) {
	t.Parallel()

	r := NewRouter(map[string]LLMProvider{"ollama": &fakeProvider{id: "ollama"}}, "ollama")
	p, err := r.Route(context.Background())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if p.ModelInfo().ID != "ollama" {
		t.Errorf("routed provider = %q", p.ModelInfo().ID)
	}
}

func TestRoute_MissingDefaultIsError(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil, "ollama")
	if _, err := r.Route(context.Background()); err == nil {
		t.Fatal("Route() expected error for unregistered default")
	}
}

func TestRegister_AddsProvider(t *testing.T) {
	t.Parallel()

	r := NewRouter(nil, "ollama")
	r.Register("ollama", &fakeProvider{id: "ollama"})
	if _, err := r.Route(context.Background()); err != nil {
		t.Fatalf("Route() after Register error = %v", err)
	}
}
