// Package postgres implements the storage interfaces backed by PostgreSQL.
// Unlike the delegating Supabase repository, this store owns the schema and
// implements the atomic transfer primitive itself inside a single
// transaction: a compare-and-swap on the owner column plus the ledger
// insert, committed together or not at all.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
)

// Store implements storage.AssetStore on a PostgreSQL database.
type Store struct {
	db *sqlx.DB
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.AssetLister = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, name, description, owner, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Name, a.Description, a.Owner, a.CreatedAt)
	if err != nil {
		return asset.Asset{}, err
	}
	return a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	var a asset.Asset
	err := s.db.GetContext(ctx, &a, `
		SELECT id, name, description, owner, created_at
		FROM assets
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Asset{}, storage.ErrNotFound
	}
	if err != nil {
		return asset.Asset{}, err
	}
	return a, nil
}

func (s *Store) ListAssetsByOwner(ctx context.Context, ownerID string) ([]asset.Asset, error) {
	assets := make([]asset.Asset, 0)
	err := s.db.SelectContext(ctx, &assets, `
		SELECT id, name, description, owner, created_at
		FROM assets
		WHERE owner = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]asset.Asset, error) {
	assets := make([]asset.Asset, 0)
	err := s.db.SelectContext(ctx, &assets, `
		SELECT id, name, description, owner, created_at
		FROM assets
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *Store) ListTransactions(ctx context.Context, assetID string) ([]asset.Transaction, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	txs := make([]asset.Transaction, 0)
	err := s.db.SelectContext(ctx, &txs, `
		SELECT id, asset_id, from_user_id, to_user_id, transferred_at
		FROM asset_transactions
		WHERE asset_id = $1
		ORDER BY transferred_at, id
	`, assetID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// TransferAsset reassigns ownership and appends the ledger record in one
// database transaction. The UPDATE's owner predicate is the optimistic
// guard: a concurrent transfer that commits first leaves zero matching rows
// here, and the whole operation rolls back with ErrOwnerChanged.
func (s *Store) TransferAsset(ctx context.Context, assetID, fromID, toID string) (asset.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return asset.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET owner = $3
		WHERE id = $1 AND owner = $2
	`, assetID, fromID, toID)
	if err != nil {
		return asset.Transaction{}, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return asset.Transaction{}, err
	}
	if rows == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM assets WHERE id = $1)`, assetID); err != nil {
			return asset.Transaction{}, err
		}
		if !exists {
			return asset.Transaction{}, storage.ErrNotFound
		}
		return asset.Transaction{}, storage.ErrOwnerChanged
	}

	rec := asset.Transaction{
		ID:            uuid.NewString(),
		AssetID:       assetID,
		FromUserID:    fromID,
		ToUserID:      toID,
		TransferredAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO asset_transactions (id, asset_id, from_user_id, to_user_id, transferred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.AssetID, rec.FromUserID, rec.ToUserID, rec.TransferredAt)
	if err != nil {
		return asset.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return asset.Transaction{}, fmt.Errorf("commit transfer: %w", err)
	}
	return rec, nil
}
