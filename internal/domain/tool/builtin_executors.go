package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Output caps mirror the upstream wrappers: enough to be useful, small
// enough not to flood a model context window.
const (
	maxRoverPhotos     = 10
	maxNEOObjects      = 12
	maxForecastPeriods = 5
)

var validRovers = []string{"curiosity", "opportunity", "spirit", "perseverance", "ingenuity"}

// validDate reports whether s is a YYYY-MM-DD date.
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// APODExecutor serves get_astronomy_picture_of_the_day via the cache-through
// APOD service.
type APODExecutor struct {
	apod apodGetter
}

func NewAPODExecutor(apod apodGetter) *APODExecutor {
	return &APODExecutor{apod: apod}
}

type apodParams struct {
	Date string `json:"date"`
}

type apodResult struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hd_url,omitempty"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright,omitempty"`
	Cached      bool   `json:"cached"`
}

func (e *APODExecutor) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p apodParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if p.Date != "" && !validDate(p.Date) {
		return nil, fmt.Errorf("date must be in YYYY-MM-DD format")
	}

	rec, cached, err := e.apod.GetByDate(ctx, p.Date)
	if err != nil {
		return nil, err
	}

	return json.Marshal(apodResult{
		Date:        rec.Date,
		Title:       rec.Title,
		Explanation: rec.Explanation,
		URL:         rec.URL,
		HDURL:       rec.HDURL,
		MediaType:   rec.MediaType,
		Copyright:   rec.Copyright,
		Cached:      cached,
	})
}

// RoverPhotosExecutor serves search_mars_rover_photos.
type RoverPhotosExecutor struct {
	rover roverPhotoSearcher
}

func NewRoverPhotosExecutor(rover roverPhotoSearcher) *RoverPhotosExecutor {
	return &RoverPhotosExecutor{rover: rover}
}

type roverPhotosParams struct {
	RoverName string `json:"rover_name"`
	Sol       *int   `json:"sol"`
	Camera    string `json:"camera"`
}

type roverPhotoView struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Camera     string `json:"camera"`
	CameraName string `json:"camera_name"`
	EarthDate  string `json:"earth_date"`
}

type roverPhotosResult struct {
	Rover  string           `json:"rover"`
	Sol    int              `json:"sol"`
	Total  int              `json:"total"`
	Count  int              `json:"count"`
	Photos []roverPhotoView `json:"photos"`
}

func (e *RoverPhotosExecutor) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p roverPhotosParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	rover := strings.ToLower(strings.TrimSpace(p.RoverName))
	if rover == "" || p.Sol == nil {
		return nil, fmt.Errorf("rover_name and sol are required parameters")
	}
	if !isValidRover(rover) {
		return nil, fmt.Errorf("invalid rover name %q, must be one of: %s", p.RoverName, strings.Join(validRovers, ", "))
	}
	if *p.Sol < 0 {
		return nil, fmt.Errorf("sol must be >= 0")
	}

	photos, err := e.rover.RoverPhotos(ctx, rover, *p.Sol, p.Camera)
	if err != nil {
		return nil, err
	}

	total := len(photos)
	if len(photos) > maxRoverPhotos {
		photos = photos[:maxRoverPhotos]
	}

	out := roverPhotosResult{
		Rover:  rover,
		Sol:    *p.Sol,
		Total:  total,
		Count:  len(photos),
		Photos: make([]roverPhotoView, 0, len(photos)),
	}
	for _, ph := range photos {
		out.Photos = append(out.Photos, roverPhotoView{
			ID:         ph.ID,
			URL:        ph.ImgSrc,
			Camera:     ph.Camera.Name,
			CameraName: ph.Camera.FullName,
			EarthDate:  ph.EarthDate,
		})
	}
	return json.Marshal(out)
}

func isValidRover(name string) bool {
	for _, r := range validRovers {
		if r == name {
			return true
		}
	}
	return false
}

// NEOExecutor serves get_near_earth_objects.
type NEOExecutor struct {
	neo neoFeeder
}

func NewNEOExecutor(neo neoFeeder) *NEOExecutor {
	return &NEOExecutor{neo: neo}
}

type neoParams struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type neoObjectView struct {
	Name           string  `json:"name"`
	ID             string  `json:"id"`
	ApproachDate   string  `json:"approach_date"`
	AvgDiameterKm  float64 `json:"avg_diameter_km"`
	MissDistanceKm float64 `json:"miss_distance_km"`
	VelocityKmph   float64 `json:"velocity_kmph"`
	Hazardous      bool    `json:"hazardous"`
}

type neoResult struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	ElementCount int             `json:"element_count"`
	Shown        int             `json:"shown"`
	Objects      []neoObjectView `json:"objects"`
}

func (e *NEOExecutor) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p neoParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.StartDate == "" || p.EndDate == "" {
		return nil, fmt.Errorf("start_date and end_date are required parameters")
	}
	if !validDate(p.StartDate) || !validDate(p.EndDate) {
		return nil, fmt.Errorf("dates must be in YYYY-MM-DD format")
	}

	feed, err := e.neo.NEOFeed(ctx, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}

	out := neoResult{
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		ElementCount: feed.ElementCount,
		Objects:      []neoObjectView{},
	}

	// iterate dates in order so the capped output is deterministic
	dates := make([]string, 0, len(feed.ByDate))
	for d := range feed.ByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, date := range dates {
		for _, obj := range feed.ByDate[date] {
			if len(out.Objects) == maxNEOObjects {
				break
			}
			view := neoObjectView{
				Name:          obj.Name,
				ID:            obj.NeoReferenceID,
				ApproachDate:  date,
				AvgDiameterKm: (obj.EstimatedDiameter.Kilometers.Min + obj.EstimatedDiameter.Kilometers.Max) / 2,
				Hazardous:     obj.IsPotentiallyHazardous,
			}
			if len(obj.CloseApproachData) > 0 {
				approach := obj.CloseApproachData[0]
				view.MissDistanceKm = parseFloatOrZero(approach.MissDistance.Kilometers)
				view.VelocityKmph = parseFloatOrZero(approach.RelativeVelocity.KilometersPerHour)
			}
			out.Objects = append(out.Objects, view)
		}
	}
	out.Shown = len(out.Objects)

	return json.Marshal(out)
}

// parseFloatOrZero parses NeoWs numeric strings; the feed sometimes omits
// or mangles them, and a zero reads better than a failed tool call.
func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// WeatherAlertsExecutor serves get_weather_alerts.
type WeatherAlertsExecutor struct {
	alerts alertLister
}

func NewWeatherAlertsExecutor(alerts alertLister) *WeatherAlertsExecutor {
	return &WeatherAlertsExecutor{alerts: alerts}
}

type weatherAlertsParams struct {
	Area string `json:"area"`
}

type alertView struct {
	Event       string `json:"event"`
	Severity    string `json:"severity"`
	Headline    string `json:"headline"`
	AreaDesc    string `json:"area_desc"`
	Instruction string `json:"instruction,omitempty"`
}

type weatherAlertsResult struct {
	Area   string      `json:"area"`
	Count  int         `json:"count"`
	Alerts []alertView `json:"alerts"`
}

func (e *WeatherAlertsExecutor) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p weatherAlertsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	area := strings.ToUpper(strings.TrimSpace(p.Area))
	if len(area) != 2 {
		return nil, fmt.Errorf("area must be a two-letter US state code")
	}

	alerts, err := e.alerts.ActiveAlerts(ctx, area)
	if err != nil {
		return nil, err
	}

	out := weatherAlertsResult{
		Area:   area,
		Count:  len(alerts),
		Alerts: make([]alertView, 0, len(alerts)),
	}
	for _, a := range alerts {
		out.Alerts = append(out.Alerts, alertView{
			Event:       a.Event,
			Severity:    a.Severity,
			Headline:    a.Headline,
			AreaDesc:    a.AreaDesc,
			Instruction: a.Instruction,
		})
	}
	return json.Marshal(out)
}

// ForecastExecutor serves get_weather_forecast.
type ForecastExecutor struct {
	forecast forecastGetter
}

func NewForecastExecutor(forecast forecastGetter) *ForecastExecutor {
	return &ForecastExecutor{forecast: forecast}
}

type forecastParams struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type forecastPeriodView struct {
	Name          string `json:"name"`
	Temperature   string `json:"temperature"`
	Wind          string `json:"wind"`
	ShortForecast string `json:"short_forecast"`
	Detailed      string `json:"detailed_forecast"`
}

type forecastResult struct {
	Latitude  float64              `json:"latitude"`
	Longitude float64              `json:"longitude"`
	Periods   []forecastPeriodView `json:"periods"`
}

func (e *ForecastExecutor) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p forecastParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, fmt.Errorf("latitude and longitude are required parameters")
	}

	periods, err := e.forecast.Forecast(ctx, *p.Latitude, *p.Longitude)
	if err != nil {
		return nil, err
	}
	if len(periods) > maxForecastPeriods {
		periods = periods[:maxForecastPeriods]
	}

	out := forecastResult{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Periods:   make([]forecastPeriodView, 0, len(periods)),
	}
	for _, period := range periods {
		out.Periods = append(out.Periods, forecastPeriodView{
			Name:          period.Name,
			Temperature:   fmt.Sprintf("%d°%s", period.Temperature, period.TemperatureUnit),
			Wind:          strings.TrimSpace(period.WindSpeed + " " + period.WindDirection),
			ShortForecast: period.ShortForecast,
			Detailed:      period.DetailedForecast,
		})
	}
	return json.Marshal(out)
}
