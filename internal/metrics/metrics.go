package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheError    = "error"
	CacheDisabled = "disabled"
)

// Metrics holds the Prometheus collectors of the server on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls        *prometheus.CounterVec
	UpstreamDur      *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	IndicatorCompute prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finance_mcp_tool_calls_total",
			Help: "MCP tool calls by tool and outcome",
		}, []string{"tool", "status"}),
		UpstreamDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finance_mcp_upstream_seconds",
			Help:    "Latency of upstream market data requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finance_mcp_cache_lookups_total",
			Help: "Bar cache lookups by result",
		}, []string{"result"}),
		IndicatorCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finance_mcp_indicator_compute_seconds",
			Help:    "Time spent computing indicator tables",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	m.registry.MustRegister(
		m.ToolCalls,
		m.UpstreamDur,
		m.CacheLookups,
		m.IndicatorCompute,
	)
	return m
}

func (m *Metrics) ObserveToolCall(tool string, failed bool) {
	status := StatusOK
	if failed {
		status = StatusError
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
}

func (m *Metrics) ObserveUpstream(provider string, elapsed time.Duration) {
	m.UpstreamDur.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveIndicatorCompute(elapsed time.Duration) {
	m.IndicatorCompute.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
