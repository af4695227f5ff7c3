// Package policy decides whether a caller may perform an action on a subject,
// given ownership facts fetched by the caller of the engine.
package policy

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"
)

type Subject string

const (
	Session    Subject = "Session"
	Restaurant Subject = "Restaurant"
	Menu       Subject = "Menu"
)

type Action string

const (
	Create         Action = "create"
	Edit           Action = "edit"
	Delete         Action = "delete"
	Claim          Action = "claim"
	SuggestChanges Action = "suggestChanges"
)

// Snake spells a in snake case, e.g. suggest_changes.
func (a Action) Snake() string {
	var b strings.Builder
	for _, r := range string(a) {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Caller is the identity a decision is made for. The zero value is anonymous.
type Caller struct {
	ID string
}

var Anonymous = Caller{}

func (c Caller) Authenticated() bool { return c.ID != "" }

// Ownership carries the facts a predicate needs. It must be fetched fresh for
// every request; the engine trusts whatever it is given.
type Ownership struct {
	CreatorID           string
	Admins              []string
	BelongsToRestaurant bool
}

func (o Ownership) Unclaimed() bool { return len(o.Admins) == 0 }

func (o Ownership) IsAdmin(id string) bool {
	return id != "" && slices.Contains(o.Admins, id)
}

func (o Ownership) IsCreator(id string) bool {
	return id != "" && o.CreatorID == id
}

type Rule struct {
	Subject Subject
	Action  Action
}

func (r Rule) String() string { return string(r.Subject) + "." + string(r.Action) }

type Predicate func(Caller, Ownership) bool

// Table maps rules to predicates. It is read-only once built.
type Table struct {
	rules map[Rule]Predicate
}

func NewTable(rules map[Rule]Predicate) *Table {
	m := make(map[Rule]Predicate, len(rules))
	for k, v := range rules {
		m[k] = v
	}
	return &Table{rules: m}
}

// Evaluate never panics: a pair without an entry denies.
func (t *Table) Evaluate(c Caller, s Subject, a Action, o Ownership) bool {
	p, ok := t.rules[Rule{Subject: s, Action: a}]
	if !ok {
		return false
	}
	return p(c, o)
}

func (t *Table) Has(r Rule) bool {
	_, ok := t.rules[r]
	return ok
}

// Rules returns the table's rules sorted by subject then action.
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for r := range t.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Action < out[j].Action
	})
	return out
}

var defaultTable = sync.OnceValue(func() *Table { return NewTable(defaultRules()) })

// Default returns the process-wide table.
func Default() *Table { return defaultTable() }

func Evaluate(c Caller, s Subject, a Action, o Ownership) bool {
	return Default().Evaluate(c, s, a, o)
}

// MustRule is meant for route registration: a route that gates on a pair the
// table does not know about is a programming error and fails at startup.
func MustRule(s Subject, a Action) Rule {
	r := Rule{Subject: s, Action: a}
	if !Default().Has(r) {
		panic(fmt.Sprintf("policy: no rule for %s", r))
	}
	return r
}

func ParseSubject(raw string) (Subject, error) {
	for _, s := range []Subject{Session, Restaurant, Menu} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("policy: unknown subject %q", raw)
}

func ParseAction(raw string) (Action, error) {
	for _, a := range []Action{Create, Edit, Delete, Claim, SuggestChanges} {
		if strings.EqualFold(raw, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("policy: unknown action %q", raw)
}
