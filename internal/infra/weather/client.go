// Package weather is the HTTP adapter for the National Weather Service API
// (api.weather.gov). Endpoints used:
//   - GET /alerts/active?area={state}  - active alerts for a US state
//   - GET /points/{lat},{lon}  - gridpoint metadata (forecast URL)
//   - GET {forecast URL}  - forecast periods
//
// NWS rejects requests without a User-Agent that identifies the caller.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls api.weather.gov.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a Client with a 30s default timeout.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Alert is one active weather alert.
type Alert struct {
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Severity    string `json:"severity"`
	AreaDesc    string `json:"areaDesc"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

type alertsResponse struct {
	Features []struct {
		Properties Alert `json:"properties"`
	} `json:"features"`
}

// ForecastPeriod is one forecast window (e.g. "Tonight", "Friday").
type ForecastPeriod struct {
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	ShortForecast    string `json:"shortForecast"`
	DetailedForecast string `json:"detailedForecast"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// ActiveAlerts fetches active alerts for a two-letter US state code.
func (c *Client) ActiveAlerts(ctx context.Context, area string) ([]Alert, error) {
	u := c.baseURL + "/alerts/active?area=" + strings.ToUpper(area)
	body, err := c.doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("weather alerts: %w", err)
	}

	var resp alertsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("weather alerts: decode response: %w", err)
	}

	alerts := make([]Alert, 0, len(resp.Features))
	for _, f := range resp.Features {
		alerts = append(alerts, f.Properties)
	}
	return alerts, nil
}

// Forecast fetches forecast periods for a coordinate. NWS requires two
// requests: /points resolves the coordinate to a gridpoint forecast URL,
// which is then fetched for the periods.
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) ([]ForecastPeriod, error) {
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, latitude, longitude)
	body, err := c.doGet(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("weather points: %w", err)
	}

	var points pointsResponse
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("weather points: decode response: %w", err)
	}
	if points.Properties.Forecast == "" {
		return nil, fmt.Errorf("weather points: no forecast URL for %.4f,%.4f", latitude, longitude)
	}

	body, err = c.doGet(ctx, points.Properties.Forecast)
	if err != nil {
		return nil, fmt.Errorf("weather forecast: %w", err)
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, fmt.Errorf("weather forecast: decode response: %w", err)
	}
	return forecast.Properties.Periods, nil
}

// doGet sends a GET request with the NWS-required headers to an absolute URL.
// The forecast URL returned by /points points at the same host, so absolute
// URLs are accepted as-is.
func (c *Client) doGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: build request: %w", u, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("get %s: read body: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}
