// Package units converts stored Celsius temperatures for display.
package units

import (
	"math"
	"strconv"

	"github.com/valpere/weathernow/internal/models"
)

// ToFahrenheit converts without rounding.
func ToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

// Convert returns celsius unchanged for Celsius, and the Fahrenheit value
// rounded to the nearest integer (halves toward +Inf) otherwise.
func Convert(celsius float64, unit models.Unit) float64 {
	if unit == models.Fahrenheit {
		return roundHalfUp(ToFahrenheit(celsius))
	}
	return celsius
}

// FormatTemp renders a temperature with its unit suffix, e.g. "12.5°C", "55°F".
func FormatTemp(celsius float64, unit models.Unit) string {
	value := Convert(celsius, unit)
	if unit == models.Fahrenheit {
		return formatNumber(value) + "°F"
	}
	return formatNumber(value) + "°C"
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// formatNumber prints the shortest representation and never "-0".
func formatNumber(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
