package middleware

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

// Claims carries the token fields the server cares about. Supabase access
// tokens put the user id in the subject and the address in "email".
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256-signed access tokens locally, without a
// round trip to the identity provider. The secret is the auth service's
// JWT signing secret.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a local token verifier.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &JWTVerifier{secret: secret}, nil
}

var _ TokenVerifier = (*JWTVerifier)(nil)

// Verify parses and validates tokenString and returns the identity it
// asserts.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (identity.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return identity.Identity{}, errors.Unauthenticated("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return identity.Identity{}, errors.Unauthenticated("invalid or expired token")
	}
	if claims.Subject == "" {
		return identity.Identity{}, errors.Unauthenticated("token carries no subject")
	}

	return identity.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
