package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valpere/weathernow/pkg/metrics"
	"github.com/valpere/weathernow/pkg/openmeteo"
	"github.com/valpere/weathernow/tests/fixtures"
	"github.com/valpere/weathernow/tests/helpers"
)

func newBenchmarkService(b *testing.B) *WeatherService {
	b.Helper()

	geo := fixtures.GetMockGeocodeResponse()
	forecast := fixtures.GetMockForecastResponse()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geo))
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(forecast))
	})
	server := httptest.NewServer(mux)
	b.Cleanup(server.Close)

	client := openmeteo.NewClient(openmeteo.Options{
		GeoURL:      server.URL + "/v1/search",
		ForecastURL: server.URL + "/v1/forecast",
	})
	return NewWeatherService(client, nil, helpers.GetTestConfig(), helpers.NewSilentTestLogger(), metrics.New())
}

// BenchmarkWeatherService_SearchLocations benchmarks the geocoding round trip
func BenchmarkWeatherService_SearchLocations(b *testing.B) {
	service := newBenchmarkService(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.SearchLocations(context.Background(), "London")
	}
}

// BenchmarkWeatherService_GetForecast benchmarks forecast retrieval and mapping
func BenchmarkWeatherService_GetForecast(b *testing.B) {
	service := newBenchmarkService(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.GetForecast(context.Background(), 51.50853, -0.12574, "London")
	}
}
