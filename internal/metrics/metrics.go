// Package metrics exposes Prometheus instrumentation for certificate validation and
// the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smregler"

// Metrics provides observability for the rule engine.
type Metrics struct {
	registry *prometheus.Registry

	// Verdicts by status
	Validations *prometheus.CounterVec

	// Fired rules by chain and rule name
	RuleHits *prometheus.CounterVec

	// Time spent running all chains for one certificate
	ValidationLatency prometheus.Histogram

	// Result cache lookups by tier and outcome
	CacheLookups *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge
}

// New registers all metrics on a fresh registry that also carries the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers all metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total certificate validations by resulting status",
		}, []string{"status"}),

		RuleHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_hits_total",
			Help:      "Total fired rules by chain and rule name",
		}, []string{"chain", "rule"}),

		ValidationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Duration of a full validation across all rule chains",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_lookups_total",
			Help:      "Result cache lookups by tier and outcome",
		}, []string{"tier", "outcome"}), // outcome: "hit", "miss", "error"

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
	}
}

// Registry returns the registry the metrics are registered on, or nil for nil metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format. Nil metrics serve
// an empty registry.
func (m *Metrics) Handler() http.Handler {
	reg := m.Registry()
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RecordValidation records one verdict and how long it took.
func (m *Metrics) RecordValidation(status string, d time.Duration) {
	if m != nil {
		m.Validations.WithLabelValues(status).Inc()
		m.ValidationLatency.Observe(d.Seconds())
	}
}

// RecordRuleHit records a fired rule.
func (m *Metrics) RecordRuleHit(chain, rule string) {
	if m != nil {
		m.RuleHits.WithLabelValues(chain, rule).Inc()
	}
}

// RecordCacheLookup records the outcome of a result cache lookup.
func (m *Metrics) RecordCacheLookup(tier, outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(tier, outcome).Inc()
	}
}

// Middleware records request counts and latencies per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
