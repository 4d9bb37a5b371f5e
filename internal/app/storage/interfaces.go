// Package storage defines the persistence contracts for the asset catalog.
package storage

import (
	"context"
	"errors"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
)

// ErrNotFound reports an absent asset.
var ErrNotFound = errors.New("asset not found")

// ErrOwnerChanged reports the atomic transfer guard tripping: the asset's
// owner no longer matched the expected sender at commit time.
var ErrOwnerChanged = errors.New("asset owner changed")

// AssetStore persists assets and their transaction ledger.
//
// TransferAsset is the atomic transfer primitive: as one indivisible unit it
// re-verifies that the asset's owner equals fromID, reassigns the owner to
// toID, and appends the transaction record. When the guard fails it returns
// ErrOwnerChanged and performs no mutation; no partial state is ever visible
// to concurrent readers.
type AssetStore interface {
	CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
	GetAsset(ctx context.Context, id string) (asset.Asset, error)
	ListAssetsByOwner(ctx context.Context, ownerID string) ([]asset.Asset, error)
	ListTransactions(ctx context.Context, assetID string) ([]asset.Transaction, error)
	TransferAsset(ctx context.Context, assetID, fromID, toID string) (asset.Transaction, error)
}

// AssetLister enumerates every asset, oldest first. Used by the ledger
// auditor; the HTTP surface never exposes it.
type AssetLister interface {
	ListAssets(ctx context.Context) ([]asset.Asset, error)
}
