package middleware

import (
	"net/http"
	"time"

	"github.com/lineaapp/linea/internal/metrics"
)

// Metrics records request counts and latency per matched route. It must run
// directly around the mux so the pattern set by the mux is visible.
func Metrics(c *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)

			next.ServeHTTP(rw, r)

			c.ObserveHTTP(r.Method, r.Pattern, rw.statusCode, time.Since(start))
		})
	}
}
