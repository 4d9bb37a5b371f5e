// Package identity defines the authenticated principal model and the
// resolver contract. Identities are owned and mutated by the external auth
// platform; this service only reads them.
package identity

import "context"

// Identity is an authenticated principal.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Resolver verifies credentials and looks identities up by email.
//
// Verify returns the identity behind a bearer token, or an Unauthenticated
// service error. ResolveByEmail returns the identity owning an email
// address, or a RecipientNotFound service error.
type Resolver interface {
	Verify(ctx context.Context, token string) (Identity, error)
	ResolveByEmail(ctx context.Context, email string) (Identity, error)
}
