package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_NoArgs_PrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("expected usage output, got %q", out.String())
	}
}

func TestRun_Version_PrintsVersion(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"version"}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "orrery version") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestRun_Help_PrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"--help"}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), "Commands:") {
		t.Fatalf("expected help output, got %q", out.String())
	}
}

func TestRun_UnknownCommand_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"launch"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_Serve_UnknownServer_Returns2(t *testing.T) {
	t.Setenv("ORRERY_DB", ":memory:")

	var out bytes.Buffer
	code := run([]string{"serve", "--server", "jupiter"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_Call_MissingToolName_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"call"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_Call_InvalidArgsJSON_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"call", "--args", "{not json", "get_weather_alerts"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_Ask_EmptyQuestion_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"ask"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_Token_NoSecret_Returns1(t *testing.T) {
	t.Setenv("ORRERY_JWT_SECRET", "")

	var out bytes.Buffer
	code := run([]string{"token"}, &out)

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRun_Token_WithSecret_PrintsToken(t *testing.T) {
	t.Setenv("ORRERY_JWT_SECRET", "test-secret-key-32-chars-min!!!")

	var out bytes.Buffer
	code := run([]string{"token", "--client-id", "dashboard"}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), ".") {
		t.Fatalf("expected a JWT, got %q", out.String())
	}
}

func TestRun_APIKey_MissingName_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"apikey"}, &out)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_APIKey_PrintsKey(t *testing.T) {
	t.Setenv("ORRERY_DB", ":memory:")

	var out bytes.Buffer
	code := run([]string{"apikey", "--name", "dashboard"}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(out.String(), ".") {
		t.Fatalf("expected an id.secret key, got %q", out.String())
	}
}

func TestSplitHostPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr     string
		wantHost string
		wantPort int
	}{
		{":8808", "0.0.0.0", 8808},
		{"127.0.0.1:9000", "127.0.0.1", 9000},
		{"localhost", "localhost", 8808},
		{"", "0.0.0.0", 8808},
	}

	for _, tt := range tests {
		host, port := splitHostPort(tt.addr, 8808)
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("splitHostPort(%q) = (%q, %d), want (%q, %d)",
				tt.addr, host, port, tt.wantHost, tt.wantPort)
		}
	}
}

func TestPrettyJSON(t *testing.T) {
	t.Parallel()

	got := prettyJSON(`{"a":1}`)
	if !strings.Contains(got, "\"a\": 1") {
		t.Errorf("expected indented JSON, got %q", got)
	}

	if got := prettyJSON("plain text"); got != "plain text" {
		t.Errorf("expected passthrough, got %q", got)
	}
}
