package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	authOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_outcomes_total",
		Help: "Authentication flow results by operation and outcome.",
	}, []string{"op", "outcome"})
)

func MetricsHandler() http.Handler { return promhttp.Handler() }

// AuthOutcome counts one finished auth operation. Outcome is "ok" or an error kind.
func AuthOutcome(op, outcome string) {
	authOutcomes.WithLabelValues(op, outcome).Inc()
}

// HTTPMetrics records request counts and latency keyed by the chi route
// pattern, and writes one access log line per request.
func HTTPMetrics(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			httpLatency.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

			if log != nil {
				WithTrace(r.Context(), log).Debug("http request",
					zap.String("method", r.Method),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Duration("elapsed", elapsed),
				)
			}
		})
	}
}
