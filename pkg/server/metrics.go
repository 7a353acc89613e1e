package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cardgen"

// Metrics collects request, plugin and template metrics. It implements
// render.Observer.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	gathers   *prometheus.HistogramVec
	attempts  *prometheus.CounterVec
	templates *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gathers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_gather_duration_seconds",
			Help:      "Plugin data gathering time including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_gather_attempts_total",
			Help:      "Plugin gather attempts.",
		}, []string{"plugin"}),
		templates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "template_render_duration_seconds",
			Help:      "Template render time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"template", "outcome"}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.gathers, m.attempts, m.templates)
	return m
}

// Gatherer exposes the registry to promhttp.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) PluginGathered(plugin string, attempts int, err error, elapsed time.Duration) {
	m.gathers.WithLabelValues(plugin, outcome(err)).Observe(elapsed.Seconds())
	m.attempts.WithLabelValues(plugin).Add(float64(attempts))
}

func (m *Metrics) TemplateRendered(template string, err error, elapsed time.Duration) {
	m.templates.WithLabelValues(template, outcome(err)).Observe(elapsed.Seconds())
}

// Middleware counts requests by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
