package tool

import (
	"context"
	"encoding/json"

	"github.com/orrery-labs/orrery/internal/infra/nasa"
	"github.com/orrery-labs/orrery/internal/infra/weather"
)

// Builtin tool names. These are the names clients see in tools/list and
// the names the keyword parser and LLM specs refer to.
const (
	BuiltinAPOD          = "get_astronomy_picture_of_the_day"
	BuiltinRoverPhotos   = "search_mars_rover_photos"
	BuiltinNEO           = "get_near_earth_objects"
	BuiltinWeatherAlerts = "get_weather_alerts"
	BuiltinForecast      = "get_weather_forecast"
)

// apodGetter is the slice of the APOD cache service the executor needs.
type apodGetter interface {
	GetByDate(ctx context.Context, date string) (*nasa.APODRecord, bool, error)
}

// roverPhotoSearcher is the slice of the NASA client the rover executor needs.
type roverPhotoSearcher interface {
	RoverPhotos(ctx context.Context, rover string, sol int, camera string) ([]nasa.RoverPhoto, error)
}

// neoFeeder is the slice of the NASA client the NEO executor needs.
type neoFeeder interface {
	NEOFeed(ctx context.Context, startDate, endDate string) (*nasa.NEOFeed, error)
}

// alertLister is the slice of the weather client the alerts executor needs.
type alertLister interface {
	ActiveAlerts(ctx context.Context, area string) ([]weather.Alert, error)
}

// forecastGetter is the slice of the weather client the forecast executor needs.
type forecastGetter interface {
	Forecast(ctx context.Context, latitude, longitude float64) ([]weather.ForecastPeriod, error)
}

// BuiltinServices carries the upstream adapters the builtin executors use.
type BuiltinServices struct {
	APOD     apodGetter
	Rover    roverPhotoSearcher
	NEO      neoFeeder
	Alerts   alertLister
	Forecast forecastGetter
}

type builtinDefinition struct {
	Definition
	executor ToolExecutor
}

func builtinDefinitions(svcs BuiltinServices) []builtinDefinition {
	return []builtinDefinition{
		{
			Definition: Definition{
				Name:        BuiltinAPOD,
				Description: "Get NASA's Astronomy Picture of the Day (APOD) for a specific date. Returns the title, explanation, and image URL.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"date":{"type":"string","description":"Date in YYYY-MM-DD format. If not provided, returns today's APOD.","pattern":"^\\d{4}-\\d{2}-\\d{2}$"}},"required":[],"additionalProperties":false}`),
			},
			executor: &APODExecutor{apod: svcs.APOD},
		},
		{
			Definition: Definition{
				Name:        BuiltinRoverPhotos,
				Description: "Search for photos taken by Mars rovers on a specific Martian day (Sol). Returns a list of photos with URLs and camera information.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"rover_name":{"type":"string","description":"Name of the Mars rover","enum":["curiosity","opportunity","spirit","perseverance","ingenuity"]},"sol":{"type":"integer","description":"Martian day (Sol) since the rover's landing","minimum":0},"camera":{"type":"string","description":"Optional camera filter (e.g. 'FHAZ', 'RHAZ', 'MAST', 'CHEMCAM', 'MAHLI', 'MARDI', 'NAVCAM')"}},"required":["rover_name","sol"],"additionalProperties":false}`),
			},
			executor: &RoverPhotosExecutor{rover: svcs.Rover},
		},
		{
			Definition: Definition{
				Name:        BuiltinNEO,
				Description: "Get list of Near Earth Objects (asteroids) passing close to Earth within a date range. Returns object details including size and closest approach.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"start_date":{"type":"string","description":"Start date in YYYY-MM-DD format","pattern":"^\\d{4}-\\d{2}-\\d{2}$"},"end_date":{"type":"string","description":"End date in YYYY-MM-DD format","pattern":"^\\d{4}-\\d{2}-\\d{2}$"}},"required":["start_date","end_date"],"additionalProperties":false}`),
			},
			executor: &NEOExecutor{neo: svcs.NEO},
		},
		{
			Definition: Definition{
				Name:        BuiltinWeatherAlerts,
				Description: "Get active weather alerts for a US state. Returns event, severity, affected area, and safety instructions per alert.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"area":{"type":"string","description":"Two-letter US state code (e.g. CA, NY)"}},"required":["area"],"additionalProperties":false}`),
			},
			executor: &WeatherAlertsExecutor{alerts: svcs.Alerts},
		},
		{
			Definition: Definition{
				Name:        BuiltinForecast,
				Description: "Get the weather forecast for a location given latitude and longitude. Returns the next forecast periods.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"latitude":{"type":"number","description":"Latitude of the location"},"longitude":{"type":"number","description":"Longitude of the location"}},"required":["latitude","longitude"],"additionalProperties":false}`),
			},
			executor: &ForecastExecutor{forecast: svcs.Forecast},
		},
	}
}

// nasaBuiltins selects the NASA server's tools.
var nasaBuiltins = map[string]bool{
	BuiltinAPOD:        true,
	BuiltinRoverPhotos: true,
	BuiltinNEO:         true,
}

// weatherBuiltins selects the weather server's tools.
var weatherBuiltins = map[string]bool{
	BuiltinWeatherAlerts: true,
	BuiltinForecast:      true,
}

// RegisterNASATools registers the NASA builtins on the registry.
func RegisterNASATools(r *ToolRegistry, svcs BuiltinServices) error {
	return registerSelected(r, svcs, nasaBuiltins)
}

// RegisterWeatherTools registers the weather builtins on the registry.
func RegisterWeatherTools(r *ToolRegistry, svcs BuiltinServices) error {
	return registerSelected(r, svcs, weatherBuiltins)
}

// RegisterAllTools registers every builtin; used by the ask flow, which
// needs the full catalog for tool specs regardless of server split.
func RegisterAllTools(r *ToolRegistry, svcs BuiltinServices) error {
	if err := RegisterNASATools(r, svcs); err != nil {
		return err
	}
	return RegisterWeatherTools(r, svcs)
}

func registerSelected(r *ToolRegistry, svcs BuiltinServices, selected map[string]bool) error {
	for _, b := range builtinDefinitions(svcs) {
		if !selected[b.Name] {
			continue
		}
		if err := r.Register(b.Definition, b.executor); err != nil {
			return err
		}
	}
	return nil
}
