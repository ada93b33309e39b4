package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/cache"
	"github.com/valpere/weathernow/internal/config"
	"github.com/valpere/weathernow/internal/interfaces"
	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/pkg/metrics"
	"github.com/valpere/weathernow/pkg/openmeteo"
)

const (
	apiGeocoding = "geocoding"
	apiForecast  = "forecast"
)

// WeatherService answers suggestion and forecast lookups from Open-Meteo,
// optionally through the Redis cache.
type WeatherService struct {
	client  *openmeteo.Client
	cache   *cache.Cache
	search  config.SearchConfig
	redis   config.RedisConfig
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	// keyed by api label; fixed at construction
	stats map[string]*cacheStats
}

type cacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
}

var _ interfaces.WeatherProvider = (*WeatherService)(nil)

func NewWeatherService(client *openmeteo.Client, c *cache.Cache, cfg *config.Config, logger *zerolog.Logger, m *metrics.Metrics) *WeatherService {
	return &WeatherService{
		client:  client,
		cache:   c,
		search:  cfg.Search,
		redis:   cfg.Redis,
		logger:  logger,
		metrics: m,
		stats: map[string]*cacheStats{
			apiGeocoding: {},
			apiForecast:  {},
		},
	}
}

// SearchLocations returns up to search.result_count candidates for query, in
// the order the geocoding API ranked them.
func (s *WeatherService) SearchLocations(ctx context.Context, query string) ([]models.Suggestion, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrQueryTooShort
	}

	cacheKey := fmt.Sprintf("geocode:%s:%d:%s", s.search.Language, s.search.ResultCount, strings.ToLower(strings.TrimSpace(query)))
	var cached []models.Suggestion
	if s.fromCache(ctx, cacheKey, apiGeocoding, &cached) {
		return cached, nil
	}

	start := time.Now()
	results, err := s.client.SearchLocations(ctx, query, s.search.ResultCount, s.search.Language)
	s.observe(apiGeocoding, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to search locations: %w", err)
	}

	suggestions := make([]models.Suggestion, 0, len(results))
	for _, r := range results {
		suggestions = append(suggestions, models.Suggestion{
			ID:        r.ID,
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}

	s.toCache(ctx, cacheKey, suggestions, s.redis.GeocodeTTL)

	return suggestions, nil
}

// GetForecast fetches the forecast for a point and tags it with name.
func (s *WeatherService) GetForecast(ctx context.Context, lat, lon float64, name string) (*models.WeatherReport, error) {
	if err := (models.Coordinates{Latitude: lat, Longitude: lon}).Validate(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("forecast:%.4f:%.4f", lat, lon)
	var report models.WeatherReport
	if s.fromCache(ctx, cacheKey, apiForecast, &report) {
		report.City = name
		return &report, nil
	}

	start := time.Now()
	forecast, err := s.client.GetForecast(ctx, lat, lon)
	s.observe(apiForecast, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast data: %w", err)
	}

	report = models.WeatherReport{
		Latitude:       forecast.Latitude,
		Longitude:      forecast.Longitude,
		Timezone:       forecast.Timezone,
		CurrentWeather: models.CurrentWeather(forecast.CurrentWeather),
		Hourly:         models.HourlySeries(forecast.Hourly),
		Daily:          models.DailySeries(forecast.Daily),
	}

	s.toCache(ctx, cacheKey, report, s.redis.ForecastTTL)

	report.City = name
	return &report, nil
}

func (s *WeatherService) fromCache(ctx context.Context, key, api string, out any) bool {
	if s.cache == nil {
		return false
	}

	ok, err := s.cache.GetJSON(ctx, key, out)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}
	st := s.stats[api]
	if ok {
		st.hits.Add(1)
		s.metrics.IncrementCounter("weather_requests_total", "cache", "hit")
	} else {
		st.misses.Add(1)
		s.metrics.IncrementCounter("weather_requests_total", "cache", "miss")
	}
	s.updateHitRate(api, st)
	return ok
}

func (s *WeatherService) toCache(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v, ttl); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to cache API result")
	}
}

func (s *WeatherService) updateHitRate(api string, st *cacheStats) {
	hits, misses := st.hits.Load(), st.misses.Load()
	if total := hits + misses; total > 0 {
		s.metrics.SetGauge("cache_hit_rate", float64(hits)*100/float64(total), api)
	}
}

func (s *WeatherService) observe(api string, start time.Time, err error) {
	s.metrics.ObserveHistogram("weather_api_duration_seconds", time.Since(start).Seconds(), api)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.IncrementCounter("weather_requests_total", api, status)
}
