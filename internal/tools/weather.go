package tools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/parleyhq/parley/internal/log"
)

// WeatherInput defines arguments for the get_weather tool.
type WeatherInput struct {
	Location string `json:"location" jsonschema_description:"City or place name to look up, e.g. 'Berlin' or 'Kyoto'"`
	Days     int    `json:"days,omitempty" jsonschema_description:"Number of forecast days (1-7), defaults to 1"`
}

type weatherTool struct {
	geocodingURL string
	forecastURL  string
	fetch        *fetcher
	logger       log.Logger
}

// geocodeResponse is the subset of the Open-Meteo geocoding API we use.
type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// forecastResponse is the subset of the Open-Meteo forecast API we use.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
	Daily struct {
		Time             []string  `json:"time"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// NewWeather creates the get_weather tool, backed by the Open-Meteo
// geocoding and forecast APIs.
func NewWeather(geocodingURL, forecastURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &weatherTool{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		fetch:        fetch,
		logger:       logger,
	}
	return NewTool(
		"get_weather",
		"Get current weather and a short daily forecast for a location. "+
			"Resolves the location name to coordinates, then returns current conditions "+
			"plus daily min/max temperature and precipitation.",
		t.run,
	)
}

func (t *weatherTool) run(ctx context.Context, in WeatherInput) Result {
	if in.Location == "" {
		return Failure(ErrCodeInvalidArguments, "location is required")
	}
	days := in.Days
	if days <= 0 {
		days = 1
	}
	if days > 7 {
		days = 7
	}

	geoURL := fmt.Sprintf("%s?name=%s&count=1", t.geocodingURL, url.QueryEscape(in.Location))
	var geo geocodeResponse
	if err := t.fetch.getJSON(ctx, geoURL, &geo); err != nil {
		t.logger.Warn("geocoding request failed", "location", in.Location, "error", err)
		return Failure(ErrCodeNetwork, "looking up %q: %v", in.Location, err)
	}
	if len(geo.Results) == 0 {
		return Failure(ErrCodeInvalidArguments, "no location found for %q", in.Location)
	}
	place := geo.Results[0]

	fcURL := fmt.Sprintf(
		"%s?latitude=%.4f&longitude=%.4f&daily=temperature_2m_max,temperature_2m_min,precipitation_sum&current_weather=true&forecast_days=%d&timezone=auto",
		t.forecastURL, place.Latitude, place.Longitude, days)
	var fc forecastResponse
	if err := t.fetch.getJSON(ctx, fcURL, &fc); err != nil {
		t.logger.Warn("forecast request failed", "location", in.Location, "error", err)
		return Failure(ErrCodeNetwork, "fetching forecast for %q: %v", in.Location, err)
	}

	daily := make([]map[string]any, 0, len(fc.Daily.Time))
	for i, day := range fc.Daily.Time {
		entry := map[string]any{"date": day}
		if i < len(fc.Daily.TemperatureMax) {
			entry["temperature_max_c"] = fc.Daily.TemperatureMax[i]
		}
		if i < len(fc.Daily.TemperatureMin) {
			entry["temperature_min_c"] = fc.Daily.TemperatureMin[i]
		}
		if i < len(fc.Daily.PrecipitationSum) {
			entry["precipitation_mm"] = fc.Daily.PrecipitationSum[i]
		}
		daily = append(daily, entry)
	}

	data := map[string]any{
		"location": fmt.Sprintf("%s, %s", place.Name, place.Country),
		"daily":    daily,
	}
	if fc.CurrentWeather != nil {
		data["current"] = map[string]any{
			"temperature_c":  fc.CurrentWeather.Temperature,
			"wind_speed_kmh": fc.CurrentWeather.WindSpeed,
			"weather_code":   fc.CurrentWeather.WeatherCode,
		}
	}
	return Success(data)
}
