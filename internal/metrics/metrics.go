// Package metrics exposes Prometheus counters for batch runs and the
// control server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devwiki/wikitools/internal/batch"
)

const namespace = "wikitools"

// Collector holds every metric on its own registry, so several servers (or
// tests) never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	Items        *prometheus.CounterVec
	Runs         *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	ActiveRuns   prometheus.Gauge
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

var _ batch.Observer = (*Collector)(nil)

// NewCollector creates and registers the metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "items_total",
				Help:      "Pages handled by batch runs, by outcome.",
			},
			[]string{"action", "outcome"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "runs_total",
				Help:      "Finished batch runs, by final status.",
			},
			[]string{"action", "status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "run_duration_seconds",
				Help:      "Wall time of batch runs.",
				Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 3600},
			},
			[]string{"action"},
		),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "active_runs",
			Help:      "Batch runs currently in progress.",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.Items, c.Runs, c.RunDuration, c.ActiveRuns, c.HTTPRequests, c.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (c *Collector) RunStarted(*batch.Run) { c.ActiveRuns.Inc() }

// EntryAdded counts per-page outcomes. Entries without a title are run-level
// messages.
func (c *Collector) EntryAdded(run *batch.Run, e batch.Entry) {
	if e.Title == "" || e.Level == batch.LevelInfo {
		return
	}
	c.Items.WithLabelValues(string(run.Job.Action), string(e.Level)).Inc()
}

func (c *Collector) RunFinished(run *batch.Run) {
	c.ActiveRuns.Dec()
	action := string(run.Job.Action)
	c.Runs.WithLabelValues(action, string(run.Status)).Inc()
	if !run.FinishedAt.IsZero() {
		c.RunDuration.WithLabelValues(action).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
}
