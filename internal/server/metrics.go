package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics lives on its own registry so several servers (tests) can coexist.
type metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	calculations *prometheus.CounterVec
	skipped      prometheus.Counter
	freeMinutes  prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaps_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gaps_free_time_calculations_total",
			Help: "Free-time calculations by outcome.",
		}, []string{"outcome"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gaps_busy_events_skipped_total",
			Help: "Busy events dropped because a timestamp was missing or inverted.",
		}),
		freeMinutes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gaps_free_minutes",
			Help:    "Total free minutes found per calculation.",
			Buckets: []float64{0, 60, 240, 600, 1200, 2400, 4800},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.calculations,
		m.skipped,
		m.freeMinutes,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
