package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	svcerrors "github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

// IdentityResolver resolves identities through the Supabase auth API and the
// get_user_id_by_email stored procedure. Identities live entirely on the
// auth platform; this resolver never writes them.
type IdentityResolver struct {
	client *Client
}

var _ identity.Resolver = (*IdentityResolver)(nil)

// NewIdentityResolver creates a resolver over an existing client.
func NewIdentityResolver(client *Client) *IdentityResolver {
	return &IdentityResolver{client: client}
}

// Verify asks the auth API which user the access token belongs to.
func (r *IdentityResolver) Verify(ctx context.Context, token string) (identity.Identity, error) {
	data, err := r.client.authGetUser(ctx, token)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return identity.Identity{}, svcerrors.Unauthenticated("invalid or expired token")
		}
		return identity.Identity{}, fmt.Errorf("%w: verify token: %v", ErrDatabaseError, err)
	}

	id := gjson.GetBytes(data, "id").String()
	if id == "" {
		return identity.Identity{}, svcerrors.Unauthenticated("invalid or expired token")
	}
	return identity.Identity{
		ID:    id,
		Email: gjson.GetBytes(data, "email").String(),
	}, nil
}

// ResolveByEmail looks up the identity owning an email address.
func (r *IdentityResolver) ResolveByEmail(ctx context.Context, email string) (identity.Identity, error) {
	data, err := r.client.rpc(ctx, "get_user_id_by_email", map[string]string{"p_email": email})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: resolve email: %v", ErrDatabaseError, err)
	}

	result := gjson.ParseBytes(data)
	if !result.Exists() || result.Type == gjson.Null || result.String() == "" {
		return identity.Identity{}, svcerrors.RecipientNotFound(email)
	}
	return identity.Identity{ID: result.String(), Email: email}, nil
}
