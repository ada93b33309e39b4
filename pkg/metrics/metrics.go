package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics keeps named collectors on a private registry so that several
// instances (one per test) never collide.
type Metrics struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	m.counters["weather_requests_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_requests_total",
			Help: "Total number of upstream weather API requests",
		},
		[]string{"api", "status"},
	)

	m.counters["http_requests_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "status"},
	)

	m.counters["suggestion_requests_coalesced_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_requests_coalesced_total",
			Help: "Query changes superseded within the debounce window",
		},
		[]string{},
	)

	m.counters["stale_results_discarded_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stale_results_discarded_total",
			Help: "Fetch results dropped because a newer request was issued",
		},
		[]string{"kind"},
	)

	m.histograms["weather_api_duration_seconds"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_api_duration_seconds",
			Help:    "Duration of upstream weather API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"api"},
	)

	m.histograms["http_request_duration_seconds"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP request handling",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.gauges["active_sessions"] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of live browser sessions",
		},
		[]string{},
	)

	m.gauges["cache_hit_rate"] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_hit_rate",
			Help: "Cache hit rate percentage",
		},
		[]string{"cache_type"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, counter := range m.counters {
		m.registry.MustRegister(counter)
	}
	for _, histogram := range m.histograms {
		m.registry.MustRegister(histogram)
	}
	for _, gauge := range m.gauges {
		m.registry.MustRegister(gauge)
	}

	return m
}

func (m *Metrics) IncrementCounter(name string, labelValues ...string) {
	if counter, exists := m.counters[name]; exists {
		counter.WithLabelValues(labelValues...).Inc()
	}
}

func (m *Metrics) ObserveHistogram(name string, value float64, labelValues ...string) {
	if histogram, exists := m.histograms[name]; exists {
		histogram.WithLabelValues(labelValues...).Observe(value)
	}
}

func (m *Metrics) SetGauge(name string, value float64, labelValues ...string) {
	if gauge, exists := m.gauges[name]; exists {
		gauge.WithLabelValues(labelValues...).Set(value)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CounterValue reads the current value of one counter series, 0 if unknown.
func (m *Metrics) CounterValue(name string, labelValues ...string) float64 {
	counter, exists := m.counters[name]
	if !exists {
		return 0
	}
	c, err := counter.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return 0
	}

	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}

// GaugeValue reads the current value of one gauge series, 0 if unknown.
func (m *Metrics) GaugeValue(name string, labelValues ...string) float64 {
	gauge, exists := m.gauges[name]
	if !exists {
		return 0
	}
	g, err := gauge.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return 0
	}

	var out dto.Metric
	if err := g.Write(&out); err != nil {
		return 0
	}
	return out.GetGauge().GetValue()
}

// HistogramCount returns how many observations a histogram series holds.
func (m *Metrics) HistogramCount(name string, labelValues ...string) uint64 {
	histogram, exists := m.histograms[name]
	if !exists {
		return 0
	}
	obs, err := histogram.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return 0
	}
	metric, ok := obs.(prometheus.Metric)
	if !ok {
		return 0
	}

	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		return 0
	}
	return out.GetHistogram().GetSampleCount()
}
