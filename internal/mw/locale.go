package mw

import (
	"net/http"

	"github.com/TwigBush/restodir/internal/locale"
)

// Locale redirects page requests without a supported locale prefix and
// stores the locale of the rest in the request context.
func Locale(router *locale.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if locale.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			res := router.Resolve(r.URL.Path, r.Header.Get("Accept-Language"))
			if res.Redirect {
				target := res.Path
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				w.Header().Set("Vary", "Accept-Language")
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r.WithContext(locale.WithLocale(r.Context(), res.Locale)))
		})
	}
}
