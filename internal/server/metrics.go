package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "droidperf_http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "droidperf_http_request_duration_seconds",
			Help:    "Dashboard request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	rowsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "droidperf_rows_ingested_total",
			Help: "CSV sample rows loaded into the query store",
		},
	)

	lastSampleValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "droidperf_last_sample",
			Help: "Most recently ingested value per metric",
		},
		[]string{"metric"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(rowsIngestedTotal)
	prometheus.MustRegister(lastSampleValue)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latencies per route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.status)).Inc()
	})
}
