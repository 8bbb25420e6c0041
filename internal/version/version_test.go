package version

import (
	"strings"
	"testing"
)

func TestString_ContainsVersionAndBuildTime(t *testing.T) {
	t.Parallel()

	s := String()
	if !strings.Contains(s, "orrery version") {
		t.Fatalf("String() = %q, want prefix containing %q", s, "orrery version")
	}
	if !strings.Contains(s, Version) {
		t.Fatalf("String() = %q, missing Version %q", s, Version)
	}
	if !strings.Contains(s, BuildTime) {
		t.Fatalf("String() = %q, missing BuildTime %q", s, BuildTime)
	}
}
