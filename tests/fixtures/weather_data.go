// Package fixtures provides canned Open-Meteo payloads for tests.
package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valpere/weathernow/internal/models"
)

// ForecastHours is the number of hourly entries in GetMockForecastResponse.
const ForecastHours = 48

// ForecastDays is the number of daily entries in GetMockForecastResponse.
const ForecastDays = 7

// ForecastStart is the first hourly timestamp of the mock forecast (a Monday).
var ForecastStart = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

// GetMockGeocodeResponse returns a geocoding payload with three London matches.
func GetMockGeocodeResponse() string {
	return `{
		"results": [
			{"id": 2643743, "name": "London", "latitude": 51.50853, "longitude": -0.12574,
			 "country_code": "GB", "country": "United Kingdom", "admin1": "England", "timezone": "Europe/London"},
			{"id": 6058560, "name": "London", "latitude": 42.98339, "longitude": -81.23304,
			 "country_code": "CA", "country": "Canada", "admin1": "Ontario", "timezone": "America/Toronto"},
			{"id": 4298960, "name": "London", "latitude": 37.12898, "longitude": -84.08326,
			 "country_code": "US", "country": "United States", "admin1": "Kentucky", "timezone": "America/New_York"}
		],
		"generationtime_ms": 0.71
	}`
}

// GetMockSuggestions is GetMockGeocodeResponse as models.
func GetMockSuggestions() []models.Suggestion {
	return []models.Suggestion{
		{ID: 2643743, Name: "London", Country: "United Kingdom", Latitude: 51.50853, Longitude: -0.12574},
		{ID: 6058560, Name: "London", Country: "Canada", Latitude: 42.98339, Longitude: -81.23304},
		{ID: 4298960, Name: "London", Country: "United States", Latitude: 37.12898, Longitude: -84.08326},
	}
}

// GetEmptyGeocodeResponse mirrors the API answer for unknown names: no "results" key.
func GetEmptyGeocodeResponse() string {
	return `{"generationtime_ms": 0.42}`
}

// GetMockForecastReport builds a report with ForecastHours hourly and
// ForecastDays daily entries. Hourly temperature at index i is 10+i*0.5.
func GetMockForecastReport(city string) models.WeatherReport {
	report := models.WeatherReport{
		City:      city,
		Latitude:  51.5,
		Longitude: -0.120000124,
		Timezone:  "Europe/London",
		CurrentWeather: models.CurrentWeather{
			Temperature:   12.3,
			WindSpeed:     10.5,
			WindDirection: 240,
			WeatherCode:   3,
			Time:          ForecastStart.Add(13 * time.Hour).Format("2006-01-02T15:04"),
		},
	}

	for i := 0; i < ForecastHours; i++ {
		ts := ForecastStart.Add(time.Duration(i) * time.Hour)
		report.Hourly.Time = append(report.Hourly.Time, ts.Format("2006-01-02T15:04"))
		report.Hourly.Temperature2m = append(report.Hourly.Temperature2m, 10+float64(i)*0.5)
		report.Hourly.WeatherCode = append(report.Hourly.WeatherCode, i%4)
	}

	for d := 0; d < ForecastDays; d++ {
		day := ForecastStart.AddDate(0, 0, d)
		report.Daily.Time = append(report.Daily.Time, day.Format("2006-01-02"))
		report.Daily.Temperature2mMax = append(report.Daily.Temperature2mMax, 15+float64(d))
		report.Daily.Temperature2mMin = append(report.Daily.Temperature2mMin, 5+float64(d))
		report.Daily.WeatherCode = append(report.Daily.WeatherCode, []int{0, 1, 2, 3, 45, 61, 95}[d])
	}

	return report
}

// GetMockForecastResponse returns GetMockForecastReport as an API payload,
// without the city tag the API never sends.
func GetMockForecastResponse() string {
	report := GetMockForecastReport("")

	payload := map[string]any{
		"latitude":           report.Latitude,
		"longitude":          report.Longitude,
		"generationtime_ms":  0.12,
		"utc_offset_seconds": 3600,
		"timezone":           report.Timezone,
		"elevation":          23.0,
		"current_weather":    report.CurrentWeather,
		"hourly_units":       map[string]string{"time": "iso8601", "temperature_2m": "°C", "weathercode": "wmo code"},
		"hourly":             report.Hourly,
		"daily":              report.Daily,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal forecast: %v", err))
	}
	return string(data)
}

// GetInvalidJSONResponse returns a truncated body
func GetInvalidJSONResponse() string {
	return `{"results": [{"id": 1, "name": "Lon`
}

// GetErrorResponse returns an Open-Meteo style error body
func GetErrorResponse() string {
	return `{"error": true, "reason": "Latitude must be in range of -90 to 90°. Given: 100.0."}`
}
