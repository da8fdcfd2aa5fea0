package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeeves_bot_commands_total",
		Help: "Total number of bot commands, buttons and callbacks handled.",
	}, []string{"command"})

	dbLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jeeves_db_latency_seconds",
		Help:    "Histogram of database operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	externalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jeeves_external_request_duration_seconds",
		Help:    "Histogram of latencies for calls to third-party APIs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "outcome"})

	schedulerFires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeeves_scheduler_fires_total",
		Help: "Total number of scheduled job runs.",
	}, []string{"job", "outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeeves_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCommand counts one handled command.
func IncCommand(command string) {
	if command == "" {
		command = "unknown"
	}
	commandsTotal.WithLabelValues(command).Inc()
}

// ObserveDBLatency records database latency for a given operation.
func ObserveDBLatency(operation string, start time.Time) {
	dbLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveExternal records the duration and outcome of a third-party call.
func ObserveExternal(service string, start time.Time, err error) {
	externalLatency.WithLabelValues(service, outcome(err)).Observe(time.Since(start).Seconds())
}

// IncSchedulerFire counts one run of a scheduled job.
func IncSchedulerFire(job string, err error) {
	schedulerFires.WithLabelValues(job, outcome(err)).Inc()
}

// Middleware records request counts by route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			httpRequestsTotal.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(ww.Status())).Inc()
		})
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
