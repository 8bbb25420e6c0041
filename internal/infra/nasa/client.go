// Package nasa is the HTTP adapter for NASA's public REST APIs.
// Endpoints used:
//   - GET /planetary/apod  - Astronomy Picture of the Day
//   - GET /mars-photos/api/v1/rovers/{rover}/photos  - Mars rover photos by sol
//   - GET /neo/rest/v1/feed  - Near Earth Object feed
//
// All requests carry the api_key query parameter; the public DEMO_KEY
// works with a low rate limit.
package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls api.nasa.gov.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client with a 30s default timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APODRecord is one Astronomy Picture of the Day entry.
// Raw holds the unmodified upstream JSON for the cache.
type APODRecord struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright"`
	Raw         []byte `json:"-"`
}

// RoverCamera identifies the camera that took a rover photo.
type RoverCamera struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// RoverPhoto is a single Mars rover photo.
type RoverPhoto struct {
	ID        int64       `json:"id"`
	ImgSrc    string      `json:"img_src"`
	EarthDate string      `json:"earth_date"`
	Camera    RoverCamera `json:"camera"`
}

type roverPhotosResponse struct {
	Photos []RoverPhoto `json:"photos"`
}

// NEODiameterRange is an estimated diameter band in kilometers.
type NEODiameterRange struct {
	Min float64 `json:"estimated_diameter_min"`
	Max float64 `json:"estimated_diameter_max"`
}

// NEOCloseApproach describes one close-approach event.
type NEOCloseApproach struct {
	MissDistance struct {
		Kilometers string `json:"kilometers"`
	} `json:"miss_distance"`
	RelativeVelocity struct {
		KilometersPerHour string `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
}

// NEOObject is a single near-earth object from the feed.
type NEOObject struct {
	Name              string `json:"name"`
	NeoReferenceID    string `json:"neo_reference_id"`
	EstimatedDiameter struct {
		Kilometers NEODiameterRange `json:"kilometers"`
	} `json:"estimated_diameter"`
	IsPotentiallyHazardous bool               `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData      []NEOCloseApproach `json:"close_approach_data"`
}

// NEOFeed is the NeoWs feed response: objects grouped by approach date.
type NEOFeed struct {
	ElementCount int                    `json:"element_count"`
	ByDate       map[string][]NEOObject `json:"near_earth_objects"`
}

// APOD fetches the Astronomy Picture of the Day. An empty date means today.
func (c *Client) APOD(ctx context.Context, date string) (*APODRecord, error) {
	params := url.Values{"api_key": {c.apiKey}}
	if date != "" {
		params.Set("date", date)
	}

	body, err := c.doGet(ctx, "/planetary/apod", params)
	if err != nil {
		return nil, fmt.Errorf("nasa apod: %w", err)
	}

	var rec APODRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("nasa apod: decode response: %w", err)
	}
	rec.Raw = body
	return &rec, nil
}

// RoverPhotos fetches photos taken by a rover on the given sol.
// A non-empty camera filters by camera code (uppercased upstream).
func (c *Client) RoverPhotos(ctx context.Context, rover string, sol int, camera string) ([]RoverPhoto, error) {
	params := url.Values{
		"api_key": {c.apiKey},
		"sol":     {strconv.Itoa(sol)},
	}
	if camera != "" {
		params.Set("camera", strings.ToUpper(camera))
	}

	path := "/mars-photos/api/v1/rovers/" + url.PathEscape(strings.ToLower(rover)) + "/photos"
	body, err := c.doGet(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("nasa rover photos: %w", err)
	}

	var resp roverPhotosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("nasa rover photos: decode response: %w", err)
	}
	return resp.Photos, nil
}

// NEOFeed fetches near-earth objects approaching between start and end
// (inclusive, YYYY-MM-DD). NeoWs limits the range to 7 days.
func (c *Client) NEOFeed(ctx context.Context, startDate, endDate string) (*NEOFeed, error) {
	params := url.Values{
		"api_key":    {c.apiKey},
		"start_date": {startDate},
		"end_date":   {endDate},
	}

	body, err := c.doGet(ctx, "/neo/rest/v1/feed", params)
	if err != nil {
		return nil, fmt.Errorf("nasa neo feed: %w", err)
	}

	var feed NEOFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("nasa neo feed: decode response: %w", err)
	}
	return &feed, nil
}

// doGet sends a GET request to baseURL+path and returns the response body.
// Non-2xx statuses are errors carrying the status code and a body snippet.
func (c *Client) doGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: build request: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("get %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, bodySnippet(body))
	}
	return body, nil
}

// bodySnippet truncates an error body for inclusion in error messages.
func bodySnippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
