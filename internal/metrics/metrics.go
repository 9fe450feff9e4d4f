package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "subtrack_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	oauthExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_oauth_exchanges_total",
		Help: "Authorization code exchanges by outcome.",
	}, []string{"result"})

	remindersScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtrack_reminders_scheduled_total",
		Help: "Reminder scheduling attempts by outcome.",
	}, []string{"result"})

	calendarLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subtrack_calendar_insert_latency_seconds",
		Help:    "Histogram of calendar event insert latencies.",
		Buckets: prometheus.DefBuckets,
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request metrics labelled by the mux pattern that serves the request,
// so path parameters do not explode label cardinality.
func Middleware(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if mux != nil {
				if _, pattern := mux.Handler(r); pattern != "" {
					route = pattern
				}
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			statusCode := strconv.Itoa(rec.status)
			httpRequestsTotal.WithLabelValues(r.Method, route).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route, statusCode).Observe(time.Since(start).Seconds())
			if rec.status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(r.Method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveOAuthExchange(result string) {
	oauthExchanges.WithLabelValues(result).Inc()
}

func ObserveReminder(result string) {
	remindersScheduled.WithLabelValues(result).Inc()
}

// ObserveCalendarLatency records the duration of a calendar insert started at start.
func ObserveCalendarLatency(start time.Time) {
	calendarLatency.Observe(time.Since(start).Seconds())
}
