// Package tenant maps requests arriving on {slug}.{root-domain} to the public
// website page of that restaurant.
package tenant

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

type Kind int

const (
	PassThrough Kind = iota
	Redirect
	Rewrite
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Rewrite:
		return "rewrite"
	default:
		return "pass_through"
	}
}

// Outcome is the single decision taken for a request. Err is set when a URL
// could not be built; Kind is then PassThrough.
type Outcome struct {
	Kind   Kind
	Slug   string
	Locale string
	Path   string // rewritten internal path
	URL    string // redirect target, without query
	Err    error
}

// ConfigurationError reports a root domain that cannot be used to build URLs.
type ConfigurationError struct {
	RootDomain string
	Err        error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tenant: invalid root domain %q: %v", e.RootDomain, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// slugRe is the DNS label shape; slugs double as subdomain labels.
var slugRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

const maxLabelLen = 63

type Resolver struct {
	disabled  error  // set by Disabled
	rootHost  string // hostname only
	authority string // hostname[:port], used in redirects
	scheme    string
	locales   []string
}

type Option func(*Resolver)

// WithScheme overrides the redirect scheme (https by default).
func WithScheme(s string) Option {
	return func(r *Resolver) {
		if s != "" {
			r.scheme = s
		}
	}
}

// WithLocales restricts which first path segments count as a locale.
func WithLocales(locales ...string) Option {
	return func(r *Resolver) { r.locales = append([]string(nil), locales...) }
}

func NewResolver(rootDomain string, opts ...Option) (*Resolver, error) {
	raw := strings.ToLower(strings.TrimSpace(rootDomain))
	if raw == "" {
		return nil, &ConfigurationError{RootDomain: rootDomain, Err: errors.New("empty")}
	}
	u, err := url.Parse("https://" + raw)
	if err != nil {
		return nil, &ConfigurationError{RootDomain: rootDomain, Err: err}
	}
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, &ConfigurationError{RootDomain: rootDomain, Err: errors.New("must be a bare host[:port]")}
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" || strings.HasPrefix(host, ".") || strings.Contains(host, "..") {
		return nil, &ConfigurationError{RootDomain: rootDomain, Err: errors.New("missing hostname")}
	}
	host = strings.TrimPrefix(host, "www.")

	r := &Resolver{rootHost: host, authority: host, scheme: "https"}
	if p := u.Port(); p != "" {
		r.authority = net.JoinHostPort(host, p)
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Disabled returns a resolver that passes every request through, standing in
// for one whose root domain could not be parsed.
func Disabled(err error) *Resolver { return &Resolver{disabled: err} }

// Err is the configuration error a Disabled resolver was built from.
func (r *Resolver) Err() error {
	if r == nil {
		return nil
	}
	return r.disabled
}

func (r *Resolver) RootHost() string {
	if r == nil {
		return ""
	}
	return r.rootHost
}

// Resolve decides what to do with a request for host and an already
// locale-resolved path.
func (r *Resolver) Resolve(host, path string) Outcome {
	if r == nil || r.disabled != nil {
		return Outcome{Kind: PassThrough}
	}
	host = NormalizeHost(host)
	if host == "" || host == r.rootHost || host == "www."+r.rootHost {
		return Outcome{Kind: PassThrough}
	}
	suffix := "." + r.rootHost
	if !strings.HasSuffix(host, suffix) {
		return Outcome{Kind: PassThrough}
	}
	prefix := strings.TrimSuffix(host, suffix)
	slug := prefix[strings.LastIndexByte(prefix, '.')+1:]
	if !ValidSlug(slug) {
		return Outcome{Kind: PassThrough, Err: fmt.Errorf("tenant: host %q has no usable slug", host)}
	}

	locale, rest := r.splitLocale(path)
	if locale != "" {
		target := WebsitePath(locale, slug)
		if path == target || path == target+"/" {
			return Outcome{Kind: PassThrough, Slug: slug, Locale: locale}
		}
		if rest == "" || rest == "/" {
			if _, err := url.ParseRequestURI(target); err != nil {
				return Outcome{Kind: PassThrough, Slug: slug, Err: fmt.Errorf("tenant: rewrite target: %w", err)}
			}
			return Outcome{Kind: Rewrite, Slug: slug, Locale: locale, Path: target}
		}
	}

	u := url.URL{Scheme: r.scheme, Host: r.authority, Path: path}
	if path == "" {
		u.Path = "/"
	}
	return Outcome{Kind: Redirect, Slug: slug, Locale: locale, URL: u.String()}
}

// splitLocale returns the leading locale segment and the remainder of path.
func (r *Resolver) splitLocale(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == path {
		return "", path
	}
	seg, rest, found := strings.Cut(trimmed, "/")
	if seg == "" {
		return "", path
	}
	if len(r.locales) > 0 && !slices.Contains(r.locales, seg) {
		return "", path
	}
	if found {
		rest = "/" + rest
	}
	return seg, rest
}

// WebsitePath is the internal route serving a restaurant's public page.
func WebsitePath(locale, slug string) string {
	return "/" + locale + "/restaurants/" + slug + "/website"
}

func ValidSlug(s string) bool {
	return len(s) > 0 && len(s) <= maxLabelLen && slugRe.MatchString(s)
}

// NormalizeHost lowercases host and strips port and trailing dot.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else if strings.Count(host, ":") == 1 {
		host, _, _ = strings.Cut(host, ":")
	}
	return strings.TrimSuffix(host, ".")
}
