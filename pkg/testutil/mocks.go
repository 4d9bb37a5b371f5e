// Package testutil provides common testing utilities and mock
// implementations.
package testutil

import (
	"context"
	"sync"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
)

// MockResolver is a test implementation of identity.Resolver backed by
// static token and email tables.
type MockResolver struct {
	mu        sync.RWMutex
	byToken   map[string]identity.Identity
	byEmail   map[string]identity.Identity
	VerifyErr error
}

var _ identity.Resolver = (*MockResolver)(nil)

// NewMockResolver creates an empty resolver.
func NewMockResolver() *MockResolver {
	return &MockResolver{
		byToken: make(map[string]identity.Identity),
		byEmail: make(map[string]identity.Identity),
	}
}

// AddUser registers an identity reachable by token and by email.
func (m *MockResolver) AddUser(token, id, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident := identity.Identity{ID: id, Email: email}
	if token != "" {
		m.byToken[token] = ident
	}
	if email != "" {
		m.byEmail[email] = ident
	}
}

func (m *MockResolver) Verify(_ context.Context, token string) (identity.Identity, error) {
	if m.VerifyErr != nil {
		return identity.Identity{}, m.VerifyErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.byToken[token]
	if !ok {
		return identity.Identity{}, errors.Unauthenticated("invalid or expired token")
	}
	return ident, nil
}

func (m *MockResolver) ResolveByEmail(_ context.Context, email string) (identity.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ident, ok := m.byEmail[email]
	if !ok {
		return identity.Identity{}, errors.RecipientNotFound(email)
	}
	return ident, nil
}

// FailingStore wraps an asset store and fails every call with Err once set.
// Useful for exercising StoreUnavailable paths.
type FailingStore struct {
	Inner storage.AssetStore
	Err   error
}

var _ storage.AssetStore = (*FailingStore)(nil)

func (f *FailingStore) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if f.Err != nil {
		return asset.Asset{}, f.Err
	}
	return f.Inner.CreateAsset(ctx, a)
}

func (f *FailingStore) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	if f.Err != nil {
		return asset.Asset{}, f.Err
	}
	return f.Inner.GetAsset(ctx, id)
}

func (f *FailingStore) ListAssetsByOwner(ctx context.Context, ownerID string) ([]asset.Asset, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Inner.ListAssetsByOwner(ctx, ownerID)
}

func (f *FailingStore) ListTransactions(ctx context.Context, assetID string) ([]asset.Transaction, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Inner.ListTransactions(ctx, assetID)
}

func (f *FailingStore) TransferAsset(ctx context.Context, assetID, fromID, toID string) (asset.Transaction, error) {
	if f.Err != nil {
		return asset.Transaction{}, f.Err
	}
	return f.Inner.TransferAsset(ctx, assetID, fromID, toID)
}
