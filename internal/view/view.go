// Package view turns a session snapshot into the display model the page
// renders: suggestion labels, the current card, the next hours and the
// daily cells, all formatted in the session's unit.
package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/internal/session"
	"github.com/valpere/weathernow/internal/units"
)

const (
	hourLayout = "2006-01-02T15:04"
	dayLayout  = "2006-01-02"
)

type SessionView struct {
	ID               string           `json:"id,omitempty"`
	Query            string           `json:"query"`
	Unit             models.Unit      `json:"unit"`
	Suggestions      []SuggestionView `json:"suggestions"`
	SuggestionsError string           `json:"suggestions_error"`
	Loading          bool             `json:"loading"`
	Error            string           `json:"error"`
	Weather          *WeatherView     `json:"weather"`
	Version          uint64           `json:"version"`
}

type SuggestionView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
	// Match is the Levenshtein similarity of Name to the query, 0..1.
	Match float32 `json:"match"`
}

type WeatherView struct {
	City    string      `json:"city"`
	Current CurrentView `json:"current"`
	Hourly  []HourView  `json:"hourly"`
	Daily   []DayView   `json:"daily"`
}

type CurrentView struct {
	Temperature string  `json:"temperature"`
	WeatherCode int     `json:"weathercode"`
	WindSpeed   float64 `json:"windspeed"`
	Summary     string  `json:"summary"`
}

type HourView struct {
	Label       string `json:"label"`
	Temperature string `json:"temperature"`
}

type DayView struct {
	Weekday     string `json:"weekday"`
	Max         string `json:"max"`
	Min         string `json:"min"`
	WeatherCode int    `json:"weathercode"`
}

// Build renders state for session id. hourlyLimit caps the hourly strip;
// zero or less shows every hour.
func Build(id string, state session.State, hourlyLimit int) SessionView {
	v := SessionView{
		ID:          id,
		Query:       state.Query,
		Unit:        state.Unit,
		Suggestions: Suggestions(state.Query, state.Suggestions),
		Loading:     state.Loading,
		Version:     state.Version,
	}
	if state.SuggestionsErr != nil {
		v.SuggestionsError = state.SuggestionsErr.Error()
	}
	if state.WeatherErr != nil {
		v.Error = state.WeatherErr.Error()
	}
	if state.Weather != nil {
		v.Weather = Weather(state.Weather, state.Unit, hourlyLimit)
	}
	return v
}

// Suggestions labels each candidate and scores it against query. The API
// ranking is kept as is.
func Suggestions(query string, list []models.Suggestion) []SuggestionView {
	out := make([]SuggestionView, 0, len(list))
	q := strings.ToLower(strings.TrimSpace(query))

	for _, s := range list {
		out = append(out, SuggestionView{
			ID:        s.ID,
			Name:      s.Name,
			Country:   s.Country,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Label:     s.Label(),
			Match:     similarity(q, strings.ToLower(s.Name)),
		})
	}
	return out
}

func similarity(a, b string) float32 {
	if a == "" || b == "" {
		return 0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return score
}

// Weather formats a report in unit.
func Weather(r *models.WeatherReport, unit models.Unit, hourlyLimit int) *WeatherView {
	cw := r.CurrentWeather
	wv := &WeatherView{
		City: r.City,
		Current: CurrentView{
			Temperature: units.FormatTemp(cw.Temperature, unit),
			WeatherCode: cw.WeatherCode,
			WindSpeed:   cw.WindSpeed,
			Summary:     fmt.Sprintf("%d · %s km/h wind", cw.WeatherCode, strconv.FormatFloat(cw.WindSpeed, 'f', -1, 64)),
		},
		Hourly: Hours(r.Hourly, unit, hourlyLimit),
		Daily:  Days(r.Daily, unit),
	}
	return wv
}

// Hours renders the first limit hourly entries.
func Hours(h models.HourlySeries, unit models.Unit, limit int) []HourView {
	n := min(len(h.Time), len(h.Temperature2m))
	if limit > 0 {
		n = min(n, limit)
	}

	out := make([]HourView, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, HourView{
			Label:       hourLabel(h.Time[i]),
			Temperature: units.FormatTemp(h.Temperature2m[i], unit),
		})
	}
	return out
}

// Days renders every daily entry.
func Days(d models.DailySeries, unit models.Unit) []DayView {
	n := min(len(d.Time), len(d.Temperature2mMax), len(d.Temperature2mMin))

	out := make([]DayView, 0, n)
	for i := 0; i < n; i++ {
		day := DayView{
			Weekday: weekday(d.Time[i]),
			Max:     units.FormatTemp(d.Temperature2mMax[i], unit),
			Min:     units.FormatTemp(d.Temperature2mMin[i], unit),
		}
		if i < len(d.WeatherCode) {
			day.WeatherCode = d.WeatherCode[i]
		}
		out = append(out, day)
	}
	return out
}

// hourLabel reads the local wall-clock hour of an Open-Meteo timestamp.
func hourLabel(ts string) string {
	t, err := time.Parse(hourLayout, ts)
	if err != nil {
		return ts
	}
	return fmt.Sprintf("%d:00", t.Hour())
}

func weekday(date string) string {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return date
	}
	return t.Weekday().String()[:3]
}
