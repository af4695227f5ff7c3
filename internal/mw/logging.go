package mw

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/trace"
)

type LogOpts struct {
	SkipPaths     []string
	RedactHeaders []string
}

var defaultRedacted = []string{"authorization", "cookie", "set-cookie", "x-api-key"}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}

func isNoisyPath(p string, skip []string) bool {
	if p == "/healthz" || p == "/version" || p == "/metrics" {
		return true
	}
	return slices.Contains(skip, p)
}

// Logger writes one summary line per request and, for responses >= 400, a
// detail line with the (redacted) request headers.
func Logger(opts LogOpts) func(http.Handler) http.Handler {
	redact := append([]string(nil), defaultRedacted...)
	for _, h := range opts.RedactHeaders {
		redact = append(redact, strings.ToLower(h))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) || isNoisyPath(r.URL.Path, opts.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			// the path may be rewritten downstream
			path := r.URL.Path
			start := time.Now()
			rec := httpx.NewRecorder(w)
			next.ServeHTTP(rec, r)
			dur := time.Since(start)

			slog.Info("req",
				trace.Attr(r.Context()),
				"m", r.Method,
				"host", r.Host,
				"path", path,
				"status", rec.Status,
				"ms", dur.Milliseconds(),
				"bytes", rec.Bytes,
			)

			if rec.Status >= 400 {
				h := map[string]string{}
				for k, vv := range r.Header {
					if len(vv) == 0 {
						continue
					}
					vl := vv[0]
					if slices.Contains(redact, strings.ToLower(k)) {
						vl = "***redacted***"
					}
					h[k] = vl
				}
				slog.Error("req_detail",
					trace.Attr(r.Context()),
					"m", r.Method, "path", path,
					"status", rec.Status, "ms", dur.Milliseconds(),
					"caller", identity.CallerFrom(r.Context()).ID,
					"headers", h,
				)
			}
		})
	}
}
