package mw

import (
	"log/slog"
	"net/http"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/trace"
)

// SessionParser is satisfied by *identity.Sessions.
type SessionParser interface {
	Parse(raw string) (policy.Caller, error)
}

// Identity resolves the caller from a bearer token or the session cookie.
// A bad or expired token leaves the request anonymous; it is never rejected here.
func Identity(sessions SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := httpx.ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				if c, err := r.Cookie(identity.CookieName); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := sessions.Parse(raw)
			if err != nil {
				slog.Debug("session_rejected", trace.Attr(r.Context()), "err", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithCaller(r.Context(), caller)))
		})
	}
}
