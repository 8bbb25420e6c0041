package ctxkeys

import (
	"context"
	"testing"
)

func TestWithValue_SetsAndGetsTypedKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), ClientID, "cli-42")
	got, ok := ctx.Value(ClientID).(string)
	if !ok {
		t.Fatalf("expected string value")
	}
	if got != "cli-42" {
		t.Fatalf("expected cli-42, got %q", got)
	}
}

func TestWithValue_DoesNotCollideWithStringKey(t *testing.T) {
	t.Parallel()

	ctx := WithValue(context.Background(), ClientID, "cli-42")
	if v := ctx.Value("client_id"); v != nil {
		t.Fatalf("plain string key resolved to %v, want nil", v)
	}
}
