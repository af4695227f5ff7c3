package identity

import (
	"context"

	"github.com/TwigBush/restodir/internal/policy"
)

type callerKey struct{}

func WithCaller(ctx context.Context, c policy.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the anonymous caller when nothing was stored.
func CallerFrom(ctx context.Context) policy.Caller {
	c, _ := ctx.Value(callerKey{}).(policy.Caller)
	return c
}
