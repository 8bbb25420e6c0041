package uuid

import (
	"regexp"
	"testing"
	"time"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewV7_Format(t *testing.T) {
	t.Parallel()

	// The version and variant bits are fixed; everything around them is
	// random, so a single sample could pass by luck.
	for i := 0; i < 256; i++ {
		id := NewV7().String()
		if !uuidPattern.MatchString(id) {
			t.Fatalf("NewV7() = %q, not a valid v7 UUID string", id)
		}
	}
}

func TestNewV7_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewV7().String()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewV7_TimeOrdered(t *testing.T) {
	t.Parallel()

	first := NewV7().String()
	time.Sleep(2 * time.Millisecond)
	second := NewV7().String()

	if first >= second {
		t.Fatalf("expected %s < %s (v7 ids sort by creation time)", first, second)
	}
}
