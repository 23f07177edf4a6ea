package identity

import "context"

type contextKey struct{}

type authContext struct {
	identity    Identity
	accessToken string
}

// WithIdentity attaches the authenticated identity and the token it was
// resolved from.
func WithIdentity(ctx context.Context, id Identity, accessToken string) context.Context {
	return context.WithValue(ctx, contextKey{}, authContext{identity: id, accessToken: accessToken})
}

func FromContext(ctx context.Context) (Identity, bool) {
	ac, ok := ctx.Value(contextKey{}).(authContext)
	if !ok {
		return Identity{}, false
	}
	return ac.identity, true
}

func AccessTokenFromContext(ctx context.Context) string {
	ac, _ := ctx.Value(contextKey{}).(authContext)
	return ac.accessToken
}
