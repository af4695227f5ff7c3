package authz

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/policy"
)

func TestEngineFollowsPolicyTable(t *testing.T) {
	e := NewEngine(nil)
	ctx := context.Background()

	d, err := e.Check(ctx, Request{Subject: policy.Restaurant, Action: policy.Create})
	if err != nil || d.Allowed || d.Reason != ReasonAnonymous {
		t.Fatalf("anonymous create = %+v, %v", d, err)
	}

	d, _ = e.Check(ctx, Request{Caller: policy.Caller{ID: "u"}, Subject: policy.Restaurant, Action: policy.Create})
	if !d.Allowed {
		t.Fatalf("authenticated create denied: %+v", d)
	}

	d, _ = e.Check(ctx, Request{
		Caller:    policy.Caller{ID: "u"},
		Subject:   policy.Restaurant,
		Action:    policy.Edit,
		Ownership: policy.Ownership{CreatorID: "u", Admins: []string{"owner"}},
	})
	if d.Allowed || d.Reason != ReasonDenied {
		t.Fatalf("creator of claimed restaurant allowed: %+v", d)
	}
}

func TestWithMetricsCountsResults(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := WithMetrics(NewEngine(nil), m)
	ctx := context.Background()

	_, _ = a.Check(ctx, Request{Subject: policy.Session, Action: policy.Create})
	_, _ = a.Check(ctx, Request{Caller: policy.Caller{ID: "u"}, Subject: policy.Session, Action: policy.Create})

	if got := testutil.ToFloat64(m.PolicyEvaluations.WithLabelValues("Session", "create", "allow")); got != 1 {
		t.Fatalf("allow = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PolicyEvaluations.WithLabelValues("Session", "create", "deny")); got != 1 {
		t.Fatalf("deny = %v, want 1", got)
	}
	if WithMetrics(a, nil) != a {
		t.Fatalf("nil metrics should return the authorizer unchanged")
	}
}

func TestWithMetricsForwardsRelationships(t *testing.T) {
	mock := &Mock{}
	a := WithMetrics(mock, metrics.New(prometheus.NewRegistry()))
	w, ok := a.(RelationshipWriter)
	if !ok {
		t.Fatalf("decorated authorizer is not a RelationshipWriter")
	}
	if err := w.WriteRelationships(context.Background(), []Relationship{{User: "user:a", Relation: "creator", Object: "restaurant:1"}}); err != nil {
		t.Fatalf("WriteRelationships: %v", err)
	}
	if len(mock.Written) != 1 {
		t.Fatalf("written = %d, want 1", len(mock.Written))
	}
}

func TestWithMetricsForwardsDeletes(t *testing.T) {
	mock := &Mock{}
	a := WithMetrics(mock, metrics.New(prometheus.NewRegistry()))
	d, ok := a.(RelationshipDeleter)
	if !ok {
		t.Fatalf("decorated authorizer is not a RelationshipDeleter")
	}
	if err := d.DeleteRelationships(context.Background(), []Relationship{{User: "user:a", Relation: "creator", Object: "restaurant:1"}}); err != nil {
		t.Fatalf("DeleteRelationships: %v", err)
	}
	if len(mock.Deleted) != 1 || mock.Deleted[0].Relation != "creator" {
		t.Fatalf("deleted = %+v", mock.Deleted)
	}

	// the local engine keeps no tuples
	e := WithMetrics(NewEngine(nil), metrics.New(prometheus.NewRegistry()))
	if err := e.(RelationshipDeleter).DeleteRelationships(context.Background(), nil); err != nil {
		t.Fatalf("engine delete: %v", err)
	}
}

func TestMock(t *testing.T) {
	m := &Mock{AlwaysAllow: true}
	d, _ := m.Check(context.Background(), Request{})
	if !d.Allowed {
		t.Fatalf("AlwaysAllow mock denied")
	}
	m.AlwaysAllow = false
	d, _ = m.Check(context.Background(), Request{})
	if d.Allowed || d.Reason != "mock_deny" {
		t.Fatalf("deny mock = %+v", d)
	}
	if len(m.Requests) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(m.Requests))
	}
}

func TestObjectRefs(t *testing.T) {
	if got := RestaurantObject(12); got != "restaurant:12" {
		t.Fatalf("RestaurantObject = %q", got)
	}
	if got := MenuObject(7); got != "menu:7" {
		t.Fatalf("MenuObject = %q", got)
	}
	if got := Relation(policy.SuggestChanges); got != "can_suggest_changes" {
		t.Fatalf("Relation = %q", got)
	}
	if got := Relation(policy.Edit); got != "can_edit" {
		t.Fatalf("Relation = %q", got)
	}
}

const testStoreID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"

type fakeFGA struct {
	mu      sync.Mutex
	allowed bool
	checks  []map[string]any
	writes  int
	deleted []string
	// relations the store reports as missing on delete
	missing map[string]bool
}

func (f *fakeFGA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/check"):
		var m map[string]any
		_ = json.Unmarshal(body, &m)
		f.checks = append(f.checks, m)
		_ = json.NewEncoder(w).Encode(map[string]any{"allowed": f.allowed, "resolution": ""})
	case strings.HasSuffix(r.URL.Path, "/write"):
		var req struct {
			Deletes *struct {
				TupleKeys []map[string]string `json:"tuple_keys"`
			} `json:"deletes"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Deletes == nil {
			f.writes++
			_, _ = w.Write([]byte("{}"))
			return
		}
		for _, tk := range req.Deletes.TupleKeys {
			if f.missing[tk["relation"]] {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"write_failed_due_to_invalid_input","message":"tuple does not exist"}`))
				return
			}
			f.deleted = append(f.deleted, tk["user"]+"#"+tk["relation"]+"@"+tk["object"])
		}
		_, _ = w.Write([]byte("{}"))
	default:
		http.NotFound(w, r)
	}
}

func newTestFGA(t *testing.T, allowed bool) (*OpenFGA, *fakeFGA) {
	t.Helper()
	fake := &fakeFGA{allowed: allowed}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	o, err := NewOpenFGA(OpenFGAConfig{APIURL: srv.URL, StoreID: testStoreID}, nil)
	if err != nil {
		t.Fatalf("NewOpenFGA: %v", err)
	}
	return o, fake
}

func TestOpenFGAObjectlessRulesStayLocal(t *testing.T) {
	o, fake := newTestFGA(t, true)
	d, err := o.Check(context.Background(), Request{Caller: policy.Caller{ID: "u"}, Subject: policy.Session, Action: policy.Create})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatalf("authenticated Session.create allowed")
	}
	if len(fake.checks) != 0 {
		t.Fatalf("store was asked for an object-less rule")
	}
}

func TestOpenFGAShortCircuits(t *testing.T) {
	o, fake := newTestFGA(t, true)
	ctx := context.Background()

	d, _ := o.Check(ctx, Request{Subject: policy.Restaurant, Action: policy.Edit, Object: "restaurant:1"})
	if d.Allowed {
		t.Fatalf("anonymous caller allowed")
	}
	d, _ = o.Check(ctx, Request{Caller: policy.Caller{ID: "u"}, Subject: policy.Menu, Action: policy.Edit, Object: "menu:3"})
	if d.Allowed {
		t.Fatalf("menu outside restaurant allowed")
	}
	if len(fake.checks) != 0 {
		t.Fatalf("store asked %d times, want 0", len(fake.checks))
	}
}

func TestOpenFGACheckAndWrite(t *testing.T) {
	o, fake := newTestFGA(t, true)
	ctx := context.Background()

	d, err := o.Check(ctx, Request{
		Caller:    policy.Caller{ID: "alice"},
		Subject:   policy.Restaurant,
		Action:    policy.SuggestChanges,
		Object:    "restaurant:9",
		Ownership: policy.Ownership{Admins: []string{"bob"}},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow from store")
	}
	if len(fake.checks) != 1 {
		t.Fatalf("checks = %d, want 1", len(fake.checks))
	}
	tk, _ := fake.checks[0]["tuple_key"].(map[string]any)
	if tk["user"] != "user:alice" || tk["relation"] != "can_suggest_changes" || tk["object"] != "restaurant:9" {
		t.Fatalf("tuple_key = %v", tk)
	}
	if c, ok := fake.checks[0]["context"]; ok {
		t.Fatalf("check sent context %v; the model declares no conditions", c)
	}

	fake.mu.Lock()
	fake.allowed = false
	fake.mu.Unlock()
	d, _ = o.Check(ctx, Request{Caller: policy.Caller{ID: "alice"}, Subject: policy.Restaurant, Action: policy.Edit, Object: "restaurant:9"})
	if d.Allowed || d.Reason != ReasonDenied {
		t.Fatalf("expected deny, got %+v", d)
	}

	err = o.WriteRelationships(ctx, []Relationship{{User: "user:alice", Relation: "creator", Object: "restaurant:9"}})
	if err != nil {
		t.Fatalf("WriteRelationships: %v", err)
	}
	if fake.writes != 1 {
		t.Fatalf("writes = %d, want 1", fake.writes)
	}
}

func TestOpenFGADeleteRelationships(t *testing.T) {
	o, fake := newTestFGA(t, true)
	ctx := context.Background()

	if err := o.DeleteRelationships(ctx, nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
	rels := []Relationship{
		{User: "user:alice", Relation: "creator", Object: "restaurant:9"},
		{User: AnyUser, Relation: "member", Object: "restaurant:9"},
		{User: "restaurant:9", Relation: "restaurant", Object: "menu:4"},
	}
	if err := o.DeleteRelationships(ctx, rels); err != nil {
		t.Fatalf("DeleteRelationships: %v", err)
	}
	if len(fake.deleted) != 3 {
		t.Fatalf("deleted = %v, want 3 tuples", fake.deleted)
	}
	if fake.writes != 0 {
		t.Fatalf("delete sent %d writes", fake.writes)
	}
}

func TestOpenFGADeleteKeepsGoingPastMissingTuples(t *testing.T) {
	o, fake := newTestFGA(t, true)
	fake.missing = map[string]bool{"claimed": true}

	err := o.DeleteRelationships(context.Background(), []Relationship{
		{User: AnyUser, Relation: "claimed", Object: "restaurant:2"},
		{User: "user:bob", Relation: "administrator", Object: "restaurant:2"},
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("err = %v, want 1 of 2 failed", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "user:bob#administrator@restaurant:2" {
		t.Fatalf("deleted = %v", fake.deleted)
	}
}
