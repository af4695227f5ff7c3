// Package locale resolves the locale prefix of page routes.
package locale

import (
	"errors"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

type Router struct {
	locales []string
	def     string
	matcher language.Matcher
}

func New(locales []string, def string) (*Router, error) {
	if len(locales) == 0 {
		return nil, errors.New("locale: no locales configured")
	}
	if !slices.Contains(locales, def) {
		return nil, errors.New("locale: default locale not in locales")
	}
	tags := make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		t, err := language.Parse(l)
		if err != nil {
			return nil, errors.New("locale: invalid locale " + l)
		}
		tags = append(tags, t)
	}
	return &Router{
		locales: append([]string(nil), locales...),
		def:     def,
		matcher: language.NewMatcher(tags),
	}, nil
}

func (r *Router) Locales() []string { return append([]string(nil), r.locales...) }

func (r *Router) Default() string { return r.def }

type Result struct {
	Locale   string
	Path     string
	Redirect bool
}

// Match reports the locale prefixing p, if any.
func (r *Router) Match(p string) (string, bool) {
	seg, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if seg != "" && slices.Contains(r.locales, seg) {
		return seg, true
	}
	return "", false
}

// Resolve returns p unchanged when it carries a locale; otherwise the prefixed
// path the client should be redirected to.
func (r *Router) Resolve(p, acceptLanguage string) Result {
	if l, ok := r.Match(p); ok {
		return Result{Locale: l, Path: p}
	}
	l := r.negotiate(acceptLanguage)
	if p == "" || p == "/" {
		return Result{Locale: l, Path: "/" + l, Redirect: true}
	}
	return Result{Locale: l, Path: "/" + l + p, Redirect: true}
}

func (r *Router) negotiate(acceptLanguage string) string {
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return r.def
	}
	_, idx, conf := r.matcher.Match(desired...)
	if conf == language.No || idx < 0 || idx >= len(r.locales) {
		return r.def
	}
	return r.locales[idx]
}

// Excluded lists paths that never get a locale or a tenant rewrite: the JSON
// API, operational endpoints and anything that looks like a file.
func Excluded(p string) bool {
	switch {
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		return true
	case p == "/healthz" || p == "/version" || p == "/metrics":
		return true
	}
	return strings.Contains(path.Base(p), ".")
}
