package mw

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/TwigBush/restodir/internal/trace"
)

// Trace picks the request's trace id: a valid inbound X-Trace-Id, else chi's
// request id, else a fresh one. The id is echoed in the response.
func Trace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(trace.Header)
			if !trace.Valid(id) {
				id = middleware.GetReqID(r.Context())
			}
			if !trace.Valid(id) {
				id = trace.NewID()
			}
			w.Header().Set(trace.Header, id)
			next.ServeHTTP(w, r.WithContext(trace.With(r.Context(), id)))
		})
	}
}
