package mw

import (
	"log/slog"
	"net/http"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/locale"
	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/tenant"
	"github.com/TwigBush/restodir/internal/trace"
)

type TenantOpts struct {
	TrustProxy bool
	Metrics    *metrics.Metrics
}

// Tenant applies the resolver's decision for subdomain requests. It must run
// after Locale so paths are already locale-prefixed.
func Tenant(res *tenant.Resolver, opts TenantOpts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if locale.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			host := httpx.EffectiveHost(r, opts.TrustProxy)
			out := res.Resolve(host, r.URL.Path)

			if out.Err != nil {
				slog.Warn("tenant_resolve_failed",
					trace.Attr(r.Context()),
					"host", host, "path", r.URL.Path, "err", out.Err)
				opts.Metrics.ObserveTenant("error")
				next.ServeHTTP(w, r)
				return
			}
			opts.Metrics.ObserveTenant(out.Kind.String())

			ctx := r.Context()
			if out.Slug != "" {
				ctx = tenant.WithSlug(ctx, out.Slug)
			}

			switch out.Kind {
			case tenant.Redirect:
				target := out.URL
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			case tenant.Rewrite:
				r2 := r.WithContext(ctx)
				u := *r.URL
				u.Path = out.Path
				u.RawPath = ""
				r2.URL = &u
				next.ServeHTTP(w, r2)
			default:
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
