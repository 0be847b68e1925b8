package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"appaccess-backend/pkg/observability"
)

var (
	categoryHTTP         = observability.NewCategory("Http")
	metricRequests       = observability.NewCounter("HttpRequests", "HTTP requests received", categoryHTTP)
	metricRequestErrors  = observability.NewCounter("HttpRequestErrors", "HTTP requests answered with a 5xx status", categoryHTTP)
	metricRequestLatency = observability.NewInterval("HttpRequestTime", "Time taken to serve one HTTP request", categoryHTTP)
)

// RequestMetrics records request counts, server error counts and latency into
// the metric sink.
func RequestMetrics(sink observability.MetricSink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			intervalID := sink.Begin(metricRequestLatency)

			next.ServeHTTP(ww, r)

			sink.End(intervalID, metricRequestLatency)
			sink.Increment(metricRequests)
			if ww.Status() >= http.StatusInternalServerError {
				sink.Increment(metricRequestErrors)
			}
		})
	}
}
