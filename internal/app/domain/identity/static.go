package identity

import (
	"context"
	"sync"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

// StaticResolver resolves identities from a fixed table. It backs the
// memory and postgres modes, where no external auth platform is present.
type StaticResolver struct {
	mu      sync.RWMutex
	byToken map[string]Identity
	byEmail map[string]Identity
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver creates an empty resolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		byToken: make(map[string]Identity),
		byEmail: make(map[string]Identity),
	}
}

// AddUser registers an identity reachable by bearer token and by email.
func (r *StaticResolver) AddUser(token, id, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident := Identity{ID: id, Email: email}
	if token != "" {
		r.byToken[token] = ident
	}
	if email != "" {
		r.byEmail[email] = ident
	}
}

func (r *StaticResolver) Verify(_ context.Context, token string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.byToken[token]
	if !ok {
		return Identity{}, errors.Unauthenticated("invalid or expired token")
	}
	return ident, nil
}

func (r *StaticResolver) ResolveByEmail(_ context.Context, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.byEmail[email]
	if !ok {
		return Identity{}, errors.RecipientNotFound(email)
	}
	return ident, nil
}

// TokenVerifier is the credential-checking half of Resolver.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// EmailResolver is the lookup half of Resolver.
type EmailResolver interface {
	ResolveByEmail(ctx context.Context, email string) (Identity, error)
}

// Composite combines independent implementations of the two Resolver
// halves, e.g. offline JWT verification with a remote email lookup.
type Composite struct {
	Tokens TokenVerifier
	Emails EmailResolver
}

var _ Resolver = Composite{}

func (c Composite) Verify(ctx context.Context, token string) (Identity, error) {
	return c.Tokens.Verify(ctx, token)
}

func (c Composite) ResolveByEmail(ctx context.Context, email string) (Identity, error) {
	return c.Emails.ResolveByEmail(ctx, email)
}
