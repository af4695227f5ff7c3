package mw

import (
	"fmt"
	"net/http"
	"time"
)

// NoStore keeps API and session responses out of every cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, max-age=0")
		h.Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// Private lets the browser reuse a page for maxAge. Pages embed the caller's
// capabilities, so shared caches must not keep them.
func Private(maxAge time.Duration) func(http.Handler) http.Handler {
	cc := fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Cache-Control", cc)
			h.Add("Vary", "Cookie")
			h.Add("Vary", "Authorization")
			next.ServeHTTP(w, r)
		})
	}
}
