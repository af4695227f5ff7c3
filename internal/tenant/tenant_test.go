package tenant

import (
	"errors"
	"testing"
)

func mustResolver(t *testing.T, root string, opts ...Option) *Resolver {
	t.Helper()
	r, err := NewResolver(root, opts...)
	if err != nil {
		t.Fatalf("NewResolver(%q) error = %v", root, err)
	}
	return r
}

func TestResolveRewritesLocaleRoot(t *testing.T) {
	r := mustResolver(t, "example.com", WithLocales("es"))

	for _, path := range []string{"/es", "/es/"} {
		got := r.Resolve("acme.example.com", path)
		if got.Kind != Rewrite {
			t.Fatalf("Resolve(%q).Kind = %v, want rewrite", path, got.Kind)
		}
		if got.Path != "/es/restaurants/acme/website" {
			t.Fatalf("Resolve(%q).Path = %q", path, got.Path)
		}
		if got.Slug != "acme" || got.Locale != "es" {
			t.Fatalf("slug/locale = %q/%q", got.Slug, got.Locale)
		}
	}
}

func TestResolveRedirectsDeepLinks(t *testing.T) {
	r := mustResolver(t, "example.com", WithLocales("es"))

	got := r.Resolve("acme.example.com", "/es/foo")
	if got.Kind != Redirect {
		t.Fatalf("Kind = %v, want redirect", got.Kind)
	}
	if got.URL != "https://example.com/es/foo" {
		t.Fatalf("URL = %q, want %q", got.URL, "https://example.com/es/foo")
	}
}

func TestResolveRootDomainPassesThrough(t *testing.T) {
	r := mustResolver(t, "example.com")
	for _, host := range []string{"example.com", "www.example.com", "EXAMPLE.com:443", "example.com."} {
		for _, path := range []string{"/", "/es", "/es/foo", "/es/restaurants/x/website"} {
			if got := r.Resolve(host, path); got.Kind != PassThrough {
				t.Fatalf("Resolve(%q, %q).Kind = %v, want pass_through", host, path, got.Kind)
			}
		}
	}
}

func TestResolveIsIdempotentAfterRewrite(t *testing.T) {
	r := mustResolver(t, "example.com", WithLocales("es"))

	first := r.Resolve("acme.example.com", "/es")
	if first.Kind != Rewrite {
		t.Fatalf("first Kind = %v, want rewrite", first.Kind)
	}
	second := r.Resolve("acme.example.com", first.Path)
	if second.Kind != PassThrough {
		t.Fatalf("re-resolving %q gave %v, want pass_through", first.Path, second.Kind)
	}
	if second.Slug != "acme" {
		t.Fatalf("second.Slug = %q", second.Slug)
	}
}

func TestResolveUsesLabelNextToRoot(t *testing.T) {
	r := mustResolver(t, "example.com")
	got := r.Resolve("shop.acme.example.com", "/es")
	if got.Kind != Rewrite || got.Slug != "acme" {
		t.Fatalf("got %+v, want rewrite for acme", got)
	}
}

func TestResolveForeignHostPassesThrough(t *testing.T) {
	r := mustResolver(t, "example.com")
	for _, host := range []string{"127.0.0.1:8080", "notexample.com", "acme.example.org", ""} {
		if got := r.Resolve(host, "/es"); got.Kind != PassThrough {
			t.Fatalf("Resolve(%q).Kind = %v, want pass_through", host, got.Kind)
		}
	}
}

func TestResolveInvalidSlugPassesThroughWithError(t *testing.T) {
	r := mustResolver(t, "example.com")
	got := r.Resolve("bad_slug.example.com", "/es")
	if got.Kind != PassThrough || got.Err == nil {
		t.Fatalf("got %+v, want pass_through with error", got)
	}
}

func TestResolveKeepsPortAndScheme(t *testing.T) {
	r := mustResolver(t, "lvh.me:3000", WithScheme("http"), WithLocales("es"))
	got := r.Resolve("acme.lvh.me:3000", "/es/blog")
	if got.URL != "http://lvh.me:3000/es/blog" {
		t.Fatalf("URL = %q", got.URL)
	}
}

func TestResolveUnknownLocaleRedirects(t *testing.T) {
	r := mustResolver(t, "example.com", WithLocales("es"))
	got := r.Resolve("acme.example.com", "/fr")
	if got.Kind != Redirect || got.URL != "https://example.com/fr" {
		t.Fatalf("got %+v", got)
	}
}

func TestNewResolverRejectsMalformedRoot(t *testing.T) {
	for _, root := range []string{"", "   ", "example.com/path", "user@example.com", "https://", ".example.com"} {
		_, err := NewResolver(root)
		if err == nil {
			t.Fatalf("NewResolver(%q) = nil error", root)
		}
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("NewResolver(%q) error %T is not *ConfigurationError", root, err)
		}
	}
}

func TestDisabledResolverPassesThrough(t *testing.T) {
	_, err := NewResolver("example.com/path")
	for _, r := range []*Resolver{Disabled(err), nil} {
		for _, host := range []string{"acme.example.com", "example.com", "10.0.0.1"} {
			got := r.Resolve(host, "/es")
			if got.Kind != PassThrough || got.Path != "" || got.URL != "" || got.Err != nil {
				t.Fatalf("Resolve(%q) on disabled resolver = %+v", host, got)
			}
		}
		if r.RootHost() != "" {
			t.Fatalf("RootHost() = %q, want empty", r.RootHost())
		}
	}
	if Disabled(err).Err() != err {
		t.Fatalf("Err() lost the configuration error")
	}
}

func TestNewResolverStripsWWW(t *testing.T) {
	r := mustResolver(t, "www.example.com")
	if r.RootHost() != "example.com" {
		t.Fatalf("RootHost() = %q", r.RootHost())
	}
}

func TestNormalizeHost(t *testing.T) {
	cases := map[string]string{
		"Acme.Example.com:8080": "acme.example.com",
		" example.com. ":        "example.com",
		"[::1]:80":              "::1",
	}
	for in, want := range cases {
		if got := NormalizeHost(in); got != want {
			t.Fatalf("NormalizeHost(%q) = %q, want %q", in, got, want)
		}
	}
}
