package reply

import "context"

type userKey struct{}

// withUser binds username as the request-scoped "current user" for the
// duration of ctx's lifetime, so object-macro bodies can ask which user
// they are serving. Because it rides on ctx rather than engine-wide
// mutable state, it needs no explicit unbind: it is simply never visible
// outside this call tree.
func withUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey{}, username)
}

// UserFromContext returns the username bound by the enclosing Reply call,
// or "" if ctx carries none (e.g. a subroutine invoked outside a reply).
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}
