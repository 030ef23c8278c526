// ABOUTME: HTTP request instrumentation middleware recording Prometheus counters
// ABOUTME: Labels use the matched route pattern, not the raw URL path

package web

import (
	"net/http"
	"strconv"

	"github.com/portalmesh/portal-bff/internal/metrics"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Instrument records a request counter per method, route pattern, and status.
// The matched pattern keeps label cardinality bounded; requests that match
// no route are labeled "unmatched".
func Instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
}
