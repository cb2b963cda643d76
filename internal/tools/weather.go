package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// Weather reports current conditions for a named location using the
// Open-Meteo geocoding and forecast APIs. No API key is required.
type Weather struct {
	client       *http.Client
	geocodingURL string
	forecastURL  string
}

var _ tool.Tool = (*Weather)(nil)

// NewWeather builds the weather tool against the public Open-Meteo endpoints.
func NewWeather(client *http.Client) *Weather {
	return &Weather{
		client:       client,
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
	}
}

func (w *Weather) Name() string { return "weather" }

func (w *Weather) Description() string {
	return "Reports the current weather for a named city or place."
}

func (w *Weather) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"location": {
				"type": "string",
				"description": "City or place name, e.g. 'Paris' or 'Portland, Oregon'"
			}
		},
		"required": ["location"]
	}`)
}

type geocodingResult struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResult struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Apparent    float64 `json:"apparent_temperature"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

func (w *Weather) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(args.Location) == "" {
		return "", errors.New("missing 'location' field")
	}

	var geo geocodingResult
	geoQuery := url.Values{"name": {args.Location}, "count": {"1"}}
	if err := w.getJSON(ctx, w.geocodingURL+"?"+geoQuery.Encode(), &geo); err != nil {
		return "", fmt.Errorf("geocoding failed: %w", err)
	}
	if len(geo.Results) == 0 {
		return "", fmt.Errorf("no location found for %q", args.Location)
	}
	place := geo.Results[0]

	var forecast forecastResult
	fcQuery := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", place.Latitude)},
		"longitude": {fmt.Sprintf("%.4f", place.Longitude)},
		"current":   {"temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code"},
	}
	if err := w.getJSON(ctx, w.forecastURL+"?"+fcQuery.Encode(), &forecast); err != nil {
		return "", fmt.Errorf("forecast failed: %w", err)
	}

	cur := forecast.Current
	return fmt.Sprintf("Weather in %s, %s: %s, %.1f°C (feels like %.1f°C), humidity %.0f%%, wind %.1f km/h",
		place.Name, place.Country, describeWeatherCode(cur.WeatherCode),
		cur.Temperature, cur.Apparent, cur.Humidity, cur.WindSpeed), nil
}

func (w *Weather) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// describeWeatherCode maps WMO interpretation codes to a short description.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return fmt.Sprintf("code %d", code)
	}
}
