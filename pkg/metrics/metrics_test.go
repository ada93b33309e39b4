package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()

	require.NotNil(t, m)
	assert.Contains(t, m.counters, "weather_requests_total")
	assert.Contains(t, m.counters, "http_requests_total")
	assert.Contains(t, m.counters, "suggestion_requests_coalesced_total")
	assert.Contains(t, m.counters, "stale_results_discarded_total")
	assert.Contains(t, m.histograms, "weather_api_duration_seconds")
	assert.Contains(t, m.histograms, "http_request_duration_seconds")
	assert.Contains(t, m.gauges, "active_sessions")
	assert.Contains(t, m.gauges, "cache_hit_rate")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.IncrementCounter("weather_requests_total", "geocoding", "success")

	assert.Equal(t, 1.0, a.CounterValue("weather_requests_total", "geocoding", "success"))
	assert.Equal(t, 0.0, b.CounterValue("weather_requests_total", "geocoding", "success"))
}

func TestMetrics_IncrementCounter(t *testing.T) {
	m := New()

	m.IncrementCounter("weather_requests_total", "forecast", "error")
	m.IncrementCounter("weather_requests_total", "forecast", "error")
	m.IncrementCounter("suggestion_requests_coalesced_total")

	assert.Equal(t, 2.0, m.CounterValue("weather_requests_total", "forecast", "error"))
	assert.Equal(t, 1.0, m.CounterValue("suggestion_requests_coalesced_total"))

	t.Run("unknown counter is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() { m.IncrementCounter("nonexistent_counter", "x") })
		assert.Equal(t, 0.0, m.CounterValue("nonexistent_counter", "x"))
	})

	t.Run("wrong label arity reads as zero", func(t *testing.T) {
		assert.Equal(t, 0.0, m.CounterValue("weather_requests_total", "only-one"))
	})
}

func TestMetrics_ObserveHistogram(t *testing.T) {
	m := New()

	m.ObserveHistogram("weather_api_duration_seconds", 0.25, "forecast")
	m.ObserveHistogram("weather_api_duration_seconds", 0.5, "forecast")

	assert.Equal(t, uint64(2), m.HistogramCount("weather_api_duration_seconds", "forecast"))
	assert.Equal(t, uint64(0), m.HistogramCount("weather_api_duration_seconds", "geocoding"))
	assert.NotPanics(t, func() { m.ObserveHistogram("nonexistent_histogram", 1.0) })
}

func TestMetrics_SetGauge(t *testing.T) {
	m := New()

	m.SetGauge("active_sessions", 3)
	m.SetGauge("cache_hit_rate", 75.5, "forecast")

	assert.Equal(t, 3.0, m.GaugeValue("active_sessions"))
	assert.Equal(t, 75.5, m.GaugeValue("cache_hit_rate", "forecast"))
	assert.NotPanics(t, func() { m.SetGauge("nonexistent_gauge", 1.0) })
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncrementCounter("weather_requests_total", "geocoding", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `weather_requests_total{api="geocoding",status="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
