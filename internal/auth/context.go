package auth

import "context"

type contextKey struct{}

// Client identifies the device or service that presented an API key.
type Client struct {
	Label string
}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(contextKey{}).(Client)
	return c, ok
}

// Label returns the authenticated client label, or "" when unauthenticated.
func Label(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.Label
}
