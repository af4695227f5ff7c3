package locale

import "context"

type ctxKey struct{}

func WithLocale(ctx context.Context, l string) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func From(ctx context.Context) string {
	l, _ := ctx.Value(ctxKey{}).(string)
	return l
}
