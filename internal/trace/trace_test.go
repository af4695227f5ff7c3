package trace

import (
	"context"
	"strings"
	"testing"
)

func TestWithFrom(t *testing.T) {
	if got := From(context.Background()); got != "" {
		t.Fatalf("From(empty) = %q", got)
	}
	id := NewID()
	if len(id) != 32 || strings.Contains(id, "-") {
		t.Fatalf("NewID = %q, want 32 hex chars", id)
	}
	ctx := With(context.Background(), id)
	if got := From(ctx); got != id {
		t.Fatalf("From = %q, want %q", got, id)
	}
	if a := Attr(ctx); a.Key != "trace" || a.Value.String() != id {
		t.Fatalf("Attr = %v", a)
	}
}

func TestNewIDIsOrdered(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatal("NewID repeated")
	}
	// v7 ids share the millisecond prefix or sort later
	if b[:8] < a[:8] {
		t.Fatalf("ids not time ordered: %s then %s", a, b)
	}
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"abc":                     true,
		"host/AbC-000001":         true,
		"":                        false,
		"has space":               false,
		"line\nbreak":             false,
		strings.Repeat("a", 128):  true,
		strings.Repeat("a", 129):  false,
		"caf\xc3\xa9":             false,
	}
	for in, want := range cases {
		if got := Valid(in); got != want {
			t.Fatalf("Valid(%q) = %v, want %v", in, got, want)
		}
	}
}
