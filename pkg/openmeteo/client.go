// Package openmeteo is a minimal client for the Open-Meteo geocoding and
// forecast APIs.
package openmeteo

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

const (
	DefaultGeoURL      = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	hourlyVariables = "temperature_2m,weathercode"
	dailyVariables  = "temperature_2m_max,temperature_2m_min,weathercode"
)

// Client represents an Open-Meteo API client
type Client struct {
	geoURL      string
	forecastURL string
	userAgent   string
	httpClient  *http.Client
}

// Options configures a Client. Zero values fall back to the public endpoints
// and a 10 second timeout.
type Options struct {
	GeoURL      string
	ForecastURL string
	UserAgent   string
	Timeout     time.Duration
}

// GeocodingResult is one entry of the geocoding "results" array.
type GeocodingResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	Time          string  `json:"time"`
}

type Hourly struct {
	Time          []string  `json:"time"`
	Temperature2m []float64 `json:"temperature_2m"`
	WeatherCode   []int     `json:"weathercode"`
}

type Daily struct {
	Time             []string  `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	WeatherCode      []int     `json:"weathercode"`
}

// ForecastResponse is the subset of the forecast payload requested by GetForecast.
type ForecastResponse struct {
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	Timezone       string         `json:"timezone"`
	CurrentWeather CurrentWeather `json:"current_weather"`
	Hourly         Hourly         `json:"hourly"`
	Daily          Daily          `json:"daily"`
}

// APIError is returned for non-200 responses. Reason carries the "reason"
// field Open-Meteo puts in its error bodies, when present.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("API request failed with status: %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status: %d: %s", e.StatusCode, e.Reason)
}

// NewClient creates a new Open-Meteo client
func NewClient(opts Options) *Client {
	if opts.GeoURL == "" {
		opts.GeoURL = DefaultGeoURL
	}
	if opts.ForecastURL == "" {
		opts.ForecastURL = DefaultForecastURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		geoURL:      opts.GeoURL,
		forecastURL: opts.ForecastURL,
		userAgent:   opts.UserAgent,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// SearchLocations resolves a free-text place name into at most count candidates.
// A response without "results" yields an empty, non-nil slice.
func (c *Client) SearchLocations(ctx context.Context, name string, count int, language string) ([]GeocodingResult, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", strconv.Itoa(count))
	params.Set("language", language)
	params.Set("format", "json")

	var apiResponse struct {
		Results []GeocodingResult `json:"results"`
	}
	if err := c.get(ctx, c.geoURL, params, &apiResponse); err != nil {
		return nil, err
	}

	if apiResponse.Results == nil {
		return []GeocodingResult{}, nil
	}
	return apiResponse.Results, nil
}

// GetForecast retrieves current weather, hourly temperature and weathercode,
// and daily min/max temperature and weathercode in the location's own timezone.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*ForecastResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("hourly", hourlyVariables)
	params.Set("daily", dailyVariables)
	params.Set("timezone", "auto")

	var forecast ForecastResponse
	if err := c.get(ctx, c.forecastURL, params, &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	requestURL := endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req) // nosec G704
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Reason: readReason(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readReason extracts {"error": true, "reason": "..."} from an error body.
func readReason(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Reason)
}
