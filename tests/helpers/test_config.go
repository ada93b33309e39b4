package helpers

import (
	"time"

	"github.com/valpere/weathernow/internal/config"
)

// GetTestConfig returns a configuration suitable for testing. Upstream URLs
// are placeholders: point them at httptest servers.
func GetTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        0,
			ReadTimeout: 5 * time.Second,
		},
		OpenMeteo: config.OpenMeteoConfig{
			GeoURL:      "http://127.0.0.1:0/v1/search",
			ForecastURL: "http://127.0.0.1:0/v1/forecast",
			UserAgent:   "WeatherNow-Test/1.0",
			Timeout:     2 * time.Second,
		},
		Search: config.SearchConfig{
			Debounce:       20 * time.Millisecond,
			MinQueryLength: 2,
			ResultCount:    5,
			Language:       "en",
			HourlyLimit:    12,
		},
		Session: config.SessionConfig{
			IdleTTL:       time.Minute,
			SweepInterval: 0,
		},
		Redis: config.RedisConfig{
			Enabled:     false,
			Host:        "localhost",
			Port:        6379,
			DB:          1,
			GeocodeTTL:  24 * time.Hour,
			ForecastTTL: 10 * time.Minute,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
		},
	}
}
