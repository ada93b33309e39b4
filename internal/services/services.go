// Package services provides the business logic layer of WeatherNow: the
// Open-Meteo backed weather service and the store of live UI sessions.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/cache"
	"github.com/valpere/weathernow/internal/config"
	"github.com/valpere/weathernow/internal/session"
	"github.com/valpere/weathernow/pkg/metrics"
	"github.com/valpere/weathernow/pkg/openmeteo"
)

// Services is the central container for the service layer.
//
// Usage:
//
//	svcs := services.New(client, cache, cfg, logger, metrics)
//	defer svcs.Stop()
//
//	sess := svcs.Sessions.Create()
//	sess.SetQuery("Lon")
type Services struct {
	Weather   *WeatherService // Geocoding and forecast lookups
	Sessions  *session.Store  // Per-browser search state
	cache     *cache.Cache
	startTime time.Time
	sweep     time.Duration
}

// New wires the weather service into a session store configured from cfg.
// c may be nil to disable caching.
func New(client *openmeteo.Client, c *cache.Cache, cfg *config.Config, logger *zerolog.Logger, metricsCollector *metrics.Metrics) *Services {
	weatherService := NewWeatherService(client, c, cfg, logger, metricsCollector)

	store := session.NewStore(weatherService, session.Config{
		Debounce:       cfg.Search.Debounce,
		MinQueryLength: cfg.Search.MinQueryLength,
		IdleTTL:        cfg.Session.IdleTTL,
	}, logger, metricsCollector)

	return &Services{
		Weather:   weatherService,
		Sessions:  store,
		cache:     c,
		startTime: time.Now(),
		sweep:     cfg.Session.SweepInterval,
	}
}

// StartSweeper expires idle sessions until ctx is cancelled.
func (s *Services) StartSweeper(ctx context.Context) {
	s.Sessions.StartSweeper(ctx, s.sweep)
}

// Uptime reports how long the container has existed.
func (s *Services) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Stop closes every session and the cache connection.
func (s *Services) Stop() {
	s.Sessions.CloseAll()
	_ = s.cache.Close()
}
