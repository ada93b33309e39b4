package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestion_Label(t *testing.T) {
	s := Suggestion{ID: 2643743, Name: "London", Country: "United Kingdom"}
	assert.Equal(t, "London, United Kingdom", s.Label())
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"C", Celsius, false},
		{"c", Celsius, false},
		{" celsius ", Celsius, false},
		{"F", Fahrenheit, false},
		{"Fahrenheit", Fahrenheit, false},
		{"K", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnit(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidUnit))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnit_Toggle(t *testing.T) {
	assert.Equal(t, Fahrenheit, Celsius.Toggle())
	assert.Equal(t, Celsius, Fahrenheit.Toggle())
	assert.Equal(t, Celsius, Celsius.Toggle().Toggle())
}

func TestCoordinates_Validate(t *testing.T) {
	assert.NoError(t, Coordinates{Latitude: 51.5, Longitude: -0.12}.Validate())
	assert.NoError(t, Coordinates{Latitude: -90, Longitude: 180}.Validate())

	err := Coordinates{Latitude: 91, Longitude: 0}.Validate()
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	err = Coordinates{Latitude: 0, Longitude: -180.5}.Validate()
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	for _, c := range []Coordinates{
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.NaN()},
		{Latitude: math.Inf(1), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(-1)},
	} {
		assert.ErrorIs(t, c.Validate(), ErrInvalidCoordinates, "%v", c)
	}
}
