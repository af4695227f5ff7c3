package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/TwigBush/restodir/internal/config"
	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		HTTP:     config.HTTPConfig{Addr: "127.0.0.1:0"},
		Metrics:  config.MetricsConfig{Addr: "127.0.0.1:0"},
		Tenant:   config.TenantConfig{RootDomain: "example.com", RedirectScheme: "https"},
		Locale:   config.LocaleConfig{Locales: []string{"es", "en"}, Default: "es"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Auth: config.AuthConfig{
			SessionSecret: "0123456789abcdef0123456789abcdef",
			Issuer:        "restodir",
			SessionTTL:    time.Hour,
		},
		Authz: config.AuthzConfig{Backend: "local"},
		Log:   config.LogConfig{Level: "error"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func get(t *testing.T, c *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := c.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServeShutsDownCleanly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	type addrs struct{ app, metrics string }
	ready := make(chan addrs, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testConfig(t), serveOpts{
			Migrate: true,
			ready:   func(app, m string) { ready <- addrs{app, m} },
		})
	}()

	var a addrs
	select {
	case a = <-ready:
	case err := <-done:
		t.Fatalf("serve returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	tr := &http.Transport{DisableKeepAlives: true}
	c := &http.Client{Transport: tr, Timeout: 5 * time.Second}
	defer tr.CloseIdleConnections()

	if code, body := get(t, c, "http://"+a.app+"/healthz"); code != http.StatusOK {
		t.Fatalf("healthz = %d %s", code, body)
	}
	if code, body := get(t, c, "http://"+a.app+"/api/v1/tags"); code != http.StatusOK {
		t.Fatalf("tags = %d %s", code, body)
	}
	code, body := get(t, c, "http://"+a.metrics+"/metrics")
	if code != http.StatusOK || !strings.Contains(body, "restodir_http_requests_total") {
		t.Fatalf("metrics = %d\n%s", code, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeRejectsBadBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Authz.Backend = "zanzibar"
	err := serve(context.Background(), cfg, serveOpts{Migrate: true})
	if err == nil || !strings.Contains(err.Error(), "zanzibar") {
		t.Fatalf("serve() = %v, want backend error", err)
	}
}

func TestBuildHandlerServesWithBadRootDomain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tenant.RootDomain = "example.com/oops"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.AutoMigrate(); err != nil {
		t.Fatal(err)
	}

	h, err := buildHandler(cfg, st, metrics.New(prometheus.NewRegistry()), serveOpts{})
	if err != nil {
		t.Fatalf("buildHandler() = %v, want degraded handler", err)
	}

	for _, target := range []string{"http://acme.example.com/es", "http://acme.example.com/api/v1/tags"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200 passed through\n%s", target, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "http://example.com/api/v1/", nil))
	if strings.Contains(rec.Body.String(), "tenant_host") {
		t.Fatalf("discovery advertises tenant hosts while routing is off: %s", rec.Body.String())
	}
}
