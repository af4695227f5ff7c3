package authz

import (
	"context"
	"strconv"

	"github.com/TwigBush/restodir/internal/metrics"
	"github.com/TwigBush/restodir/internal/policy"
)

type Decision struct {
	Allowed bool
	Reason  string
}

type Request struct {
	Caller    policy.Caller
	Subject   policy.Subject
	Action    policy.Action
	Object    string // "restaurant:12", "menu:7"; empty for rules without an object
	Ownership policy.Ownership
}

type Authorizer interface {
	Check(ctx context.Context, req Request) (Decision, error)
}

// Relationship is one ownership fact mirrored to a relationship store.
type Relationship struct {
	User     string // "user:<profile id>" or "restaurant:<id>"
	Relation string // "creator", "administrator", "parent"
	Object   string
}

// RelationshipWriter is implemented by backends that keep their own copy of
// ownership facts.
type RelationshipWriter interface {
	WriteRelationships(ctx context.Context, rels []Relationship) error
}

// RelationshipDeleter removes facts once the row they mirror is gone.
type RelationshipDeleter interface {
	DeleteRelationships(ctx context.Context, rels []Relationship) error
}

func RestaurantObject(id uint) string { return "restaurant:" + strconv.FormatUint(uint64(id), 10) }

func MenuObject(id uint) string { return "menu:" + strconv.FormatUint(uint64(id), 10) }

func UserRef(profileID string) string { return "user:" + profileID }

// AnyUser is the wildcard subject for public relations.
const AnyUser = "user:*"

const (
	ReasonDenied    = "policy_denied"
	ReasonAnonymous = "anonymous"
)

type observed struct {
	next Authorizer
	m    *metrics.Metrics
}

// WithMetrics counts every decision of next by subject, action and result.
func WithMetrics(next Authorizer, m *metrics.Metrics) Authorizer {
	if m == nil {
		return next
	}
	return &observed{next: next, m: m}
}

func (o *observed) Check(ctx context.Context, req Request) (Decision, error) {
	d, err := o.next.Check(ctx, req)
	result := "deny"
	switch {
	case err != nil:
		result = "error"
	case d.Allowed:
		result = "allow"
	}
	o.m.ObservePolicy(string(req.Subject), string(req.Action), result)
	return d, err
}

func (o *observed) WriteRelationships(ctx context.Context, rels []Relationship) error {
	if w, ok := o.next.(RelationshipWriter); ok {
		return w.WriteRelationships(ctx, rels)
	}
	return nil
}

func (o *observed) DeleteRelationships(ctx context.Context, rels []Relationship) error {
	if d, ok := o.next.(RelationshipDeleter); ok {
		return d.DeleteRelationships(ctx, rels)
	}
	return nil
}
