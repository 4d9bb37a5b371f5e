// Package catalog provides the read and create operations over the asset
// store. All operations are side-effect free except Create; reads may be
// served from an attached cache.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	svcerrors "github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// Service manages asset catalog reads and creation.
type Service struct {
	store storage.AssetStore
	cache Cache
	log   *logger.Logger
}

// New constructs a catalog service.
func New(store storage.AssetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// AttachCache enables the read-through cache. Safe to skip entirely.
func (s *Service) AttachCache(cache Cache) {
	s.cache = cache
}

// ListByOwner returns the owner's assets in insertion order. An owner with
// no assets gets an empty slice, not an error.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]asset.Asset, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, svcerrors.Validation("owner_id is required")
	}

	if s.cache != nil {
		if assets, ok := s.cache.GetOwnerAssets(ctx, ownerID); ok {
			return assets, nil
		}
	}

	assets, err := s.store.ListAssetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, svcerrors.StoreUnavailable(err)
	}

	if s.cache != nil {
		s.cache.SetOwnerAssets(ctx, ownerID, assets)
	}
	return assets, nil
}

// GetDetails returns an asset with its full history, ascending by timestamp.
func (s *Service) GetDetails(ctx context.Context, assetID string) (asset.Details, error) {
	if strings.TrimSpace(assetID) == "" {
		return asset.Details{}, svcerrors.Validation("asset_id is required")
	}

	if s.cache != nil {
		if details, ok := s.cache.GetDetails(ctx, assetID); ok {
			return details, nil
		}
	}

	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return asset.Details{}, svcerrors.NotFound("asset", assetID)
		}
		return asset.Details{}, svcerrors.StoreUnavailable(err)
	}

	history, err := s.store.ListTransactions(ctx, assetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return asset.Details{}, svcerrors.NotFound("asset", assetID)
		}
		return asset.Details{}, svcerrors.StoreUnavailable(err)
	}

	details := asset.Details{Asset: a, Transactions: history}
	if s.cache != nil {
		s.cache.SetDetails(ctx, details)
	}
	return details, nil
}

// Create persists a new asset owned by its creator.
func (s *Service) Create(ctx context.Context, name, description, ownerID string) (asset.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return asset.Asset{}, svcerrors.Validation("name is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return asset.Asset{}, svcerrors.Validation("owner_id is required")
	}

	created, err := s.store.CreateAsset(ctx, asset.Asset{
		Name:        name,
		Description: description,
		Owner:       ownerID,
	})
	if err != nil {
		return asset.Asset{}, svcerrors.StoreUnavailable(err)
	}

	s.Invalidate(ctx, created.ID, created.Owner)
	s.log.WithContext(ctx).
		WithField("asset_id", created.ID).
		WithField("owner", created.Owner).
		Info("asset created")
	return created, nil
}

// Invalidate drops cached entries touched by a write. Called by this
// service on create and by the transfer orchestrator after a commit.
func (s *Service) Invalidate(ctx context.Context, assetID string, ownerIDs ...string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateAsset(ctx, assetID)
	for _, owner := range ownerIDs {
		s.cache.InvalidateOwner(ctx, owner)
	}
}
