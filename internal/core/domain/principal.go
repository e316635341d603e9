package domain

import "context"

// Principal is the resolved identity attached to a single request. It is built
// from a freshly looked-up Account and never written back to storage.
type Principal struct {
	AccountID string
	Username  string
	Role      Role
}

// Anonymous is the principal of a request without a usable bearer token.
var Anonymous = Principal{}

// IsAnonymous reports whether no account is attached.
func (p Principal) IsAnonymous() bool {
	return p.AccountID == ""
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return !p.IsAnonymous() && p.Role == RoleAdmin
}

// Owns reports whether the principal is the owner identified by ownerID.
func (p Principal) Owns(ownerID string) bool {
	return !p.IsAnonymous() && ownerID != "" && p.AccountID == ownerID
}

type principalCtxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the principal carried by ctx, or Anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	if !ok {
		return Anonymous
	}
	return p
}
