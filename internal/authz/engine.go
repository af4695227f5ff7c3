package authz

import (
	"context"

	"github.com/TwigBush/restodir/internal/policy"
)

// Engine answers from the in-process policy table.
type Engine struct {
	table *policy.Table
}

func NewEngine(t *policy.Table) *Engine {
	if t == nil {
		t = policy.Default()
	}
	return &Engine{table: t}
}

func (e *Engine) Check(_ context.Context, req Request) (Decision, error) {
	if e.table.Evaluate(req.Caller, req.Subject, req.Action, req.Ownership) {
		return Decision{Allowed: true}, nil
	}
	d := Decision{Reason: ReasonDenied}
	if !req.Caller.Authenticated() {
		d.Reason = ReasonAnonymous
	}
	return d, nil
}
