// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/httputil"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// TokenVerifier turns a bearer credential into an identity.
// identity.Resolver satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

// AuthMiddleware authenticates requests with a bearer credential.
type AuthMiddleware struct {
	verifier  TokenVerifier
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates an authentication middleware. Requests to
// skipPaths pass through unauthenticated.
func NewAuthMiddleware(verifier TokenVerifier, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthMiddleware{verifier: verifier, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthenticated("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.respondError(w, r, errors.Unauthenticated("invalid Authorization header format"))
			return
		}

		ident, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("credential verification failed")
			m.respondError(w, r, err)
			return
		}

		ctx := logger.WithUserID(r.Context(), ident.ID)
		if ident.Email != "" {
			ctx = logger.WithUserEmail(ctx, ident.Email)
		}

		m.log.WithContext(ctx).WithField("user_id", ident.ID).Debug("authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Unauthenticated("")
	}

	httputil.WriteErrorResponse(w, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
	m.log.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("authentication failed")
}

// GetUserID extracts the authenticated user id from context.
func GetUserID(ctx context.Context) string {
	return logger.GetUserID(ctx)
}

// GetUserEmail extracts the authenticated user's email from context.
func GetUserEmail(ctx context.Context) string {
	return logger.GetUserEmail(ctx)
}

// RequireUserID rejects requests that reached a protected handler without
// an authenticated identity.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			httputil.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
