// Package metrics exposes the viewer's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "handouts",
		Name:      "access_decisions_total",
		Help:      "Handout access decisions by role, scope and outcome.",
	}, []string{"role", "scope", "outcome"})

	pdfExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "handouts",
		Name:      "pdf_exports_total",
		Help:      "PDF export attempts by backend and result.",
	}, []string{"backend", "result"})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "handouts",
		Name:      "pdf_render_duration_seconds",
		Help:      "Time spent inside the PDF backend per render.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	})

	renderQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "handouts",
		Name:      "pdf_render_queue_depth",
		Help:      "Renders waiting for a worker.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "handouts",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveAccess counts one access decision.
func ObserveAccess(role, scope, outcome string) {
	accessDecisions.WithLabelValues(role, scope, outcome).Inc()
}

// ObservePDFExport counts one PDF export attempt. result is "ok", "unavailable" or "error".
func ObservePDFExport(backend, result string) {
	pdfExports.WithLabelValues(backend, result).Inc()
}

// ObserveRender records how long one backend render took.
func ObserveRender(d time.Duration) {
	renderDuration.Observe(d.Seconds())
}

// SetRenderQueueDepth reports the number of queued renders.
func SetRenderQueueDepth(n int) {
	renderQueueDepth.Set(float64(n))
}

// Middleware records request latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
