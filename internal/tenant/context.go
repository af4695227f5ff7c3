package tenant

import "context"

type ctxKey struct{}

// WithSlug records the tenant a subdomain request was resolved to.
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, ctxKey{}, slug)
}

// SlugFrom returns "" for requests on the root domain.
func SlugFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
