package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
)

// AssetRepository implements the asset store on top of Supabase. Reads go
// through PostgREST table endpoints; the atomic transfer delegates to the
// transfer_asset stored procedure, which owns the ownership guard.
type AssetRepository struct {
	client *Client
}

var _ storage.AssetStore = (*AssetRepository)(nil)
var _ storage.AssetLister = (*AssetRepository)(nil)

// NewAssetRepository creates a repository over an existing client.
func NewAssetRepository(client *Client) *AssetRepository {
	return &AssetRepository{client: client}
}

const assetColumns = "id,name,description,owner,created_at"

func (r *AssetRepository) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	payload := map[string]string{
		"id":          a.ID,
		"name":        a.Name,
		"description": a.Description,
		"owner":       a.Owner,
	}
	data, err := r.client.request(ctx, "POST", "assets", payload, "select="+assetColumns)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: create asset: %v", ErrDatabaseError, err)
	}

	var rows []asset.Asset
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return asset.Asset{}, fmt.Errorf("%w: unmarshal created asset", ErrDatabaseError)
	}
	return rows[0], nil
}

func (r *AssetRepository) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	query := "select=" + assetColumns + "&id=eq." + url.QueryEscape(id)
	data, err := r.client.request(ctx, "GET", "assets", nil, query)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: get asset: %v", ErrDatabaseError, err)
	}

	var rows []asset.Asset
	if err := json.Unmarshal(data, &rows); err != nil {
		return asset.Asset{}, fmt.Errorf("%w: unmarshal asset", ErrDatabaseError)
	}
	if len(rows) == 0 {
		return asset.Asset{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func (r *AssetRepository) ListAssetsByOwner(ctx context.Context, ownerID string) ([]asset.Asset, error) {
	query := "select=" + assetColumns +
		"&owner=eq." + url.QueryEscape(ownerID) +
		"&order=created_at.asc"
	data, err := r.client.request(ctx, "GET", "assets", nil, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list assets: %v", ErrDatabaseError, err)
	}

	rows := make([]asset.Asset, 0)
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: unmarshal assets", ErrDatabaseError)
	}
	return rows, nil
}

func (r *AssetRepository) ListAssets(ctx context.Context) ([]asset.Asset, error) {
	data, err := r.client.request(ctx, "GET", "assets", nil, "select="+assetColumns+"&order=created_at.asc")
	if err != nil {
		return nil, fmt.Errorf("%w: list assets: %v", ErrDatabaseError, err)
	}

	rows := make([]asset.Asset, 0)
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: unmarshal assets", ErrDatabaseError)
	}
	return rows, nil
}

func (r *AssetRepository) ListTransactions(ctx context.Context, assetID string) ([]asset.Transaction, error) {
	if _, err := r.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	query := "select=id,asset_id,from_user_id,to_user_id,transferred_at" +
		"&asset_id=eq." + url.QueryEscape(assetID) +
		"&order=transferred_at.asc"
	data, err := r.client.request(ctx, "GET", "asset_transactions", nil, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", ErrDatabaseError, err)
	}

	rows := make([]asset.Transaction, 0)
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: unmarshal transactions", ErrDatabaseError)
	}
	return rows, nil
}

// TransferAsset invokes the transfer_asset stored procedure. The procedure
// raises with a distinct SQLSTATE when the asset is missing or the guard
// trips; those map back to the storage sentinels.
func (r *AssetRepository) TransferAsset(ctx context.Context, assetID, fromID, toID string) (asset.Transaction, error) {
	data, err := r.client.rpc(ctx, "transfer_asset", map[string]string{
		"p_asset_id":     assetID,
		"p_from_user_id": fromID,
		"p_to_user_id":   toID,
	})
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			switch gjson.Get(apiErr.Body, "code").String() {
			case "P0002":
				return asset.Transaction{}, storage.ErrNotFound
			case "40001":
				return asset.Transaction{}, storage.ErrOwnerChanged
			}
		}
		return asset.Transaction{}, fmt.Errorf("%w: transfer asset: %v", ErrDatabaseError, err)
	}

	var tx asset.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return asset.Transaction{}, fmt.Errorf("%w: unmarshal transaction", ErrDatabaseError)
	}
	return tx, nil
}
