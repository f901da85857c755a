package middleware

import (
	"net/http"
)

// HTTPObserver records one finished request.
type HTTPObserver interface {
	ObserveHTTP(path, method string, code int)
}

// Metrics reports every request to obs. Paths outside known are reported
// as "other" to keep label cardinality bounded.
func Metrics(obs HTTPObserver, known ...string) func(http.Handler) http.Handler {
	paths := make(map[string]struct{}, len(known))
	for _, p := range known {
		paths[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			path := r.URL.Path
			if _, ok := paths[path]; !ok {
				path = "other"
			}
			obs.ObserveHTTP(path, r.Method, rec.status)
		})
	}
}
