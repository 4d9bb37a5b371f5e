// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and prototyping and
// deliberately keeps the implementation simple.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
)

// Store is an in-memory asset store. All mutations are serialized by a
// single mutex, which makes TransferAsset trivially atomic.
type Store struct {
	mu           sync.RWMutex
	last         time.Time
	assets       map[string]asset.Asset
	order        []string
	transactions map[string][]asset.Transaction
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.AssetLister = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		assets:       make(map[string]asset.Asset),
		transactions: make(map[string][]asset.Transaction),
	}
}

func (s *Store) CreateAsset(_ context.Context, a asset.Asset) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	} else if _, exists := s.assets[a.ID]; exists {
		return asset.Asset{}, fmt.Errorf("asset %s already exists", a.ID)
	}
	a.CreatedAt = s.now()

	s.assets[a.ID] = a
	s.order = append(s.order, a.ID)
	return a, nil
}

func (s *Store) GetAsset(_ context.Context, id string) (asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return asset.Asset{}, storage.ErrNotFound
	}
	return a, nil
}

// ListAssetsByOwner returns assets in insertion order.
func (s *Store) ListAssetsByOwner(_ context.Context, ownerID string) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]asset.Asset, 0)
	for _, id := range s.order {
		if a := s.assets[id]; a.Owner == ownerID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *Store) ListAssets(_ context.Context) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]asset.Asset, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.assets[id])
	}
	return result, nil
}

// ListTransactions returns an asset's history ascending by timestamp.
func (s *Store) ListTransactions(_ context.Context, assetID string) ([]asset.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.assets[assetID]; !ok {
		return nil, storage.ErrNotFound
	}

	history := s.transactions[assetID]
	result := make([]asset.Transaction, len(history))
	copy(result, history)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TransferredAt.Before(result[j].TransferredAt)
	})
	return result, nil
}

// TransferAsset performs the owner compare-and-swap and appends the ledger
// record under one lock, so readers observe either both effects or neither.
func (s *Store) TransferAsset(_ context.Context, assetID, fromID, toID string) (asset.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[assetID]
	if !ok {
		return asset.Transaction{}, storage.ErrNotFound
	}
	if a.Owner != fromID {
		return asset.Transaction{}, storage.ErrOwnerChanged
	}

	a.Owner = toID
	s.assets[assetID] = a

	tx := asset.Transaction{
		ID:            uuid.NewString(),
		AssetID:       assetID,
		FromUserID:    fromID,
		ToUserID:      toID,
		TransferredAt: s.now(),
	}
	s.transactions[assetID] = append(s.transactions[assetID], tx)
	return tx, nil
}

// now returns a strictly increasing UTC timestamp so per-asset histories
// stay ordered even when transfers land within the clock's resolution.
// Callers must hold the write lock.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}
