package interfaces

import (
	"context"

	"github.com/valpere/weathernow/internal/models"
)

// WeatherProvider is what a session needs from the outside world: the
// geocoding lookup behind suggestions and the forecast behind a selection.
type WeatherProvider interface {
	SearchLocations(ctx context.Context, query string) ([]models.Suggestion, error)
	GetForecast(ctx context.Context, lat, lon float64, name string) (*models.WeatherReport, error)
}
