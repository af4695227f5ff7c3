// Package trace carries a per-request trace id.
package trace

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type ctxKey struct{}

const Header = "X-Trace-Id"

const maxLen = 128

// NewID returns a time-ordered id as 32 hex chars.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// Valid reports whether an inbound id is short printable ASCII, safe to echo
// back and to log.
func Valid(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func From(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// Attr is the log attribute for the id carried by ctx.
func Attr(ctx context.Context) slog.Attr {
	return slog.String("trace", From(ctx))
}
