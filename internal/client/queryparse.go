package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/orrery-labs/orrery/internal/domain/tool"
)

// Keyword fallback for the ask flow. Covers the common phrasings of the
// five builtin tools; anything it cannot place gets an error telling the
// user to be explicit or start an LLM.

var (
	dateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	solRe   = regexp.MustCompile(`\bsol\s+(\d+)\b`)
	coordRe = regexp.MustCompile(`(-?\d{1,3}\.\d+)[,\s]+(-?\d{1,3}\.\d+)`)
	stateRe = regexp.MustCompile(`\b([A-Z]{2})\b`)
)

var roverNames = []string{"curiosity", "opportunity", "spirit", "perseverance", "ingenuity"}

// parseQuery maps a question to a tool name and arguments.
func parseQuery(question string) (string, json.RawMessage, error) {
	lower := strings.ToLower(question)
	dates := dateRe.FindAllString(question, -1)

	switch {
	case containsAny(lower, "picture of the day", "apod", "astronomy picture"):
		args := map[string]any{}
		if len(dates) > 0 {
			args["date"] = dates[0]
		}
		return tool.BuiltinAPOD, marshalArgs(args), nil

	case containsAny(lower, "rover", "mars photo"):
		rover := ""
		for _, name := range roverNames {
			if strings.Contains(lower, name) {
				rover = name
				break
			}
		}
		if rover == "" {
			rover = "curiosity"
		}
		sol := 1000
		if m := solRe.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				sol = n
			}
		}
		return tool.BuiltinRoverPhotos, marshalArgs(map[string]any{
			"rover_name": rover,
			"sol":        sol,
		}), nil

	case containsAny(lower, "asteroid", "near earth", "near-earth", "neo"):
		start, end := defaultNEORange()
		if len(dates) >= 2 {
			start, end = dates[0], dates[1]
		} else if len(dates) == 1 {
			start = dates[0]
			end = dates[0]
		}
		return tool.BuiltinNEO, marshalArgs(map[string]any{
			"start_date": start,
			"end_date":   end,
		}), nil

	case containsAny(lower, "alert", "warning"):
		area := stateRe.FindString(question)
		if area == "" {
			return "", nil, fmt.Errorf("could not find a two-letter state code in %q", question)
		}
		return tool.BuiltinWeatherAlerts, marshalArgs(map[string]any{
			"area": area,
		}), nil

	case containsAny(lower, "forecast", "weather"):
		m := coordRe.FindStringSubmatch(question)
		if m == nil {
			return "", nil, fmt.Errorf("could not find latitude,longitude coordinates in %q", question)
		}
		lat, _ := strconv.ParseFloat(m[1], 64) //nolint:errcheck
		lon, _ := strconv.ParseFloat(m[2], 64) //nolint:errcheck
		return tool.BuiltinForecast, marshalArgs(map[string]any{
			"latitude":  lat,
			"longitude": lon,
		}), nil
	}

	return "", nil, fmt.Errorf("could not map %q to a tool; rephrase or start an LLM provider", question)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func marshalArgs(args map[string]any) json.RawMessage {
	out, _ := json.Marshal(args) //nolint:errcheck
	return out
}

// defaultNEORange is today through seven days out, the NeoWs maximum.
func defaultNEORange() (string, string) {
	now := time.Now().UTC()
	return now.Format("2006-01-02"), now.AddDate(0, 0, 7).Format("2006-01-02")
}
