package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// apiMetrics holds the collectors exposed on /metrics. Each router gets its
// own registry so routers can be built more than once in a process.
type apiMetrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	analyses        *prometheus.CounterVec
}

func newAPIMetrics() *apiMetrics {
	m := &apiMetrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multifamily_requests_total",
				Help: "HTTP requests processed, partitioned by status code, method and route.",
			},
			[]string{"code", "method", "route"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "multifamily_request_duration_seconds",
				Help: "HTTP request latencies in seconds.",
			},
			[]string{"code", "method", "route"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multifamily_analyses_total",
				Help: "Property analyses run by the API, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.requestCount, m.requestDuration, m.analyses)
	return m
}

// middleware records request count and latency per route pattern.
func (m *apiMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route patterns keep label cardinality bounded.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		m.requestDuration.WithLabelValues(code, r.Method, route).Observe(time.Since(start).Seconds())
		m.requestCount.WithLabelValues(code, r.Method, route).Inc()
	})
}

// observeAnalysis counts one analysis by outcome: ok, partial, fatal or invalid.
func (m *apiMetrics) observeAnalysis(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *apiMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
