// Package asset defines the catalog's domain models.
package asset

import "time"

// Asset is a named digital item with a single current owner.
type Asset struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Owner       string    `json:"owner" db:"owner"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Transaction is an immutable record of one ownership change. Ordered by
// TransferredAt, an asset's transactions form a chain: each record's
// FromUserID equals the owner immediately before it, and the last record's
// ToUserID equals the current owner.
type Transaction struct {
	ID            string    `json:"id" db:"id"`
	AssetID       string    `json:"asset_id" db:"asset_id"`
	FromUserID    string    `json:"from_user_id" db:"from_user_id"`
	ToUserID      string    `json:"to_user_id" db:"to_user_id"`
	TransferredAt time.Time `json:"transferred_at" db:"transferred_at"`
}

// Details bundles an asset with its full history, ascending by timestamp.
type Details struct {
	Asset
	Transactions []Transaction `json:"transactions"`
}
