package client

import (
	"encoding/json"
	"testing"

	"github.com/orrery-labs/orrery/internal/domain/tool"
)

func TestParseQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
		wantTool string
		wantArgs map[string]any
	}{
		{
			name:     "apod with date",
			question: "show me the astronomy picture of the day for 2024-06-15",
			wantTool: tool.BuiltinAPOD,
			wantArgs: map[string]any{"date": "2024-06-15"},
		},
		{
			name:     "apod without date",
			question: "what's today's APOD?",
			wantTool: tool.BuiltinAPOD,
			wantArgs: map[string]any{},
		},
		{
			name:     "rover with name and sol",
			question: "mars rover photos from perseverance on sol 500",
			wantTool: tool.BuiltinRoverPhotos,
			wantArgs: map[string]any{"rover_name": "perseverance", "sol": float64(500)},
		},
		{
			name:     "rover defaults",
			question: "show me some mars rover photos",
			wantTool: tool.BuiltinRoverPhotos,
			wantArgs: map[string]any{"rover_name": "curiosity", "sol": float64(1000)},
		},
		{
			name:     "neo with date range",
			question: "asteroids passing between 2024-06-01 and 2024-06-07",
			wantTool: tool.BuiltinNEO,
			wantArgs: map[string]any{"start_date": "2024-06-01", "end_date": "2024-06-07"},
		},
		{
			name:     "alerts with state code",
			question: "any weather alerts for TX right now?",
			wantTool: tool.BuiltinWeatherAlerts,
			wantArgs: map[string]any{"area": "TX"},
		},
		{
			name:     "forecast with coordinates",
			question: "forecast for 30.2672, -97.7431 please",
			wantTool: tool.BuiltinForecast,
			wantArgs: map[string]any{"latitude": 30.2672, "longitude": -97.7431},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			name, args, err := parseQuery(tt.question)
			if err != nil {
				t.Fatalf("parseQuery() error = %v", err)
			}
			if name != tt.wantTool {
				t.Errorf("tool = %q, want %q", name, tt.wantTool)
			}

			var got map[string]any
			if err := json.Unmarshal(args, &got); err != nil {
				t.Fatalf("unmarshal args: %v", err)
			}
			if len(got) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", got, tt.wantArgs)
			}
			for k, v := range tt.wantArgs {
				if got[k] != v {
					t.Errorf("args[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	t.Parallel()

	for _, question := range []string{
		"tell me a joke",
		"weather alerts please",
		"what's the forecast",
	} {
		if _, _, err := parseQuery(question); err == nil {
			t.Errorf("parseQuery(%q) error = nil, want error", question)
		}
	}
}

func TestParseQuerySingleNEODate(t *testing.T) {
	t.Parallel()

	name, args, err := parseQuery("near earth objects on 2024-06-15")
	if err != nil {
		t.Fatalf("parseQuery() error = %v", err)
	}
	if name != tool.BuiltinNEO {
		t.Fatalf("tool = %q", name)
	}

	var got map[string]string
	if err := json.Unmarshal(args, &got); err != nil {
		t.Fatalf("unmarshal args: %v", err)
	}
	if got["start_date"] != "2024-06-15" || got["end_date"] != "2024-06-15" {
		t.Errorf("args = %v", got)
	}
}
