package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePolicy("Restaurant", "edit", "deny")
	m.ObservePolicy("Restaurant", "edit", "deny")
	m.ObserveTenant("rewrite")
	m.ObserveRequest("/api/v1/tags", "GET", "200", 0.01)

	if got := testutil.ToFloat64(m.PolicyEvaluations.WithLabelValues("Restaurant", "edit", "deny")); got != 2 {
		t.Fatalf("policy deny count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TenantOutcomes.WithLabelValues("rewrite")); got != 1 {
		t.Fatalf("tenant rewrite count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/tags", "GET", "200")); got != 1 {
		t.Fatalf("request count = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePolicy("Menu", "edit", "allow")
	m.ObserveTenant("redirect")
	m.ObserveRequest("/", "GET", "200", 0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ObserveTenant("redirect")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `restodir_tenant_outcomes_total{outcome="redirect"} 1`) {
		t.Fatalf("metrics output missing tenant counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics output missing go collector")
	}
}
