// Package models holds the data carried between the Open-Meteo client, the
// session state container and the display layer.
package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrQueryTooShort      = errors.New("query too short")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidUnit        = errors.New("invalid unit")
)

// Suggestion is one geocoding candidate.
type Suggestion struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Label is the dropdown text, "Name, Country".
func (s Suggestion) Label() string {
	return fmt.Sprintf("%s, %s", s.Name, s.Country)
}

// CurrentWeather mirrors the "current_weather" object of the forecast API.
type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	Time          string  `json:"time"`
}

// HourlySeries holds parallel arrays indexed by hour.
type HourlySeries struct {
	Time          []string  `json:"time"`
	Temperature2m []float64 `json:"temperature_2m"`
	WeatherCode   []int     `json:"weathercode"`
}

// DailySeries holds parallel arrays indexed by day.
type DailySeries struct {
	Time             []string  `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	WeatherCode      []int     `json:"weathercode"`
}

// WeatherReport is a complete forecast response tagged with the display name
// of the place it was requested for. Temperatures are always Celsius.
type WeatherReport struct {
	City           string         `json:"city"`
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	Timezone       string         `json:"timezone"`
	CurrentWeather CurrentWeather `json:"current_weather"`
	Hourly         HourlySeries   `json:"hourly"`
	Daily          DailySeries    `json:"daily"`
}

// Unit is the temperature display unit.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ParseUnit accepts "C", "F", "celsius" or "fahrenheit" in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// Toggle returns the other unit.
func (u Unit) Toggle() Unit {
	if u == Fahrenheit {
		return Celsius
	}
	return Fahrenheit
}

// Coordinates is a point chosen by the user.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Validate() error {
	// NaN fails every comparison, so reject non-finite values explicitly
	if !isFinite(c.Latitude) || !isFinite(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: (%.4f, %.4f)", ErrInvalidCoordinates, c.Latitude, c.Longitude)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
