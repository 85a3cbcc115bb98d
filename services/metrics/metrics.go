// Package metricsvc collects the prometheus metrics of the API and serves them on the debug host.
package metricsvc

import (
	"expvar"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

// Metrics owns its registry, so several servers (tests) can live in one process.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	purged      *prometheus.CounterVec
}

func New(conf *core.Config) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Accepted exam and homework submissions.",
		}, []string{"kind"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purged_records_total",
			Help: "Records removed by the housekeeping job.",
		}, []string{"table"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.submissions, m.purged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "build_info",
			Help:        "Build of the running binary.",
			ConstLabels: prometheus.Labels{"build": conf.Build, "env": conf.Env},
		}, func() float64 { return 1 }),
	)
	return m
}

// Middleware records the count and latency of every request under its route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Submitted counts an accepted submission of kind "exam" or "homework".
func (m *Metrics) Submitted(kind string) {
	m.submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) Purged(table string, n int) {
	m.purged.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// DebugMux serves /metrics next to the expvar /debug/vars page.
func (m *Metrics) DebugMux(conf *core.Config) *http.ServeMux {
	publishOnce(conf)
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// expvar panics on duplicate names.
func publishOnce(conf *core.Config) {
	if expvar.Get("build") == nil {
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
	}
}
