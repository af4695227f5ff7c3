package authz

import (
	"context"
	"sync"
)

type Mock struct {
	AlwaysAllow bool

	mu       sync.Mutex
	Requests []Request
	Written  []Relationship
	Deleted  []Relationship
}

func (m *Mock) Check(_ context.Context, req Request) (Decision, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.AlwaysAllow {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Reason: "mock_deny"}, nil
}

func (m *Mock) WriteRelationships(_ context.Context, rels []Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Written = append(m.Written, rels...)
	return nil
}

func (m *Mock) DeleteRelationships(_ context.Context, rels []Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, rels...)
	return nil
}
