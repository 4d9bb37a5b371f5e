// Package app composes the collection manager into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── asset/          # Assets and their transaction history
//	│   └── identity/       # Authenticated principals and resolvers
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # AssetStore, AssetLister, sentinel errors
//	│   ├── memory/         # In-memory implementation
//	│   └── postgres/       # PostgreSQL implementation
//	├── services/           # Business logic
//	│   ├── catalog/        # Asset reads and creation, optional cache
//	│   ├── transfer/       # Ownership transfer orchestration
//	│   └── ledgeraudit/    # Scheduled ledger consistency sweeps
//	├── httpapi/            # REST handlers and the request audit log
//	├── system/             # Service lifecycle management
//	└── metrics/            # Prometheus collectors
//
// The app package wires services to their stores and an identity
// resolver, registers lifecycle-managed components with the system
// manager, and leaves transport concerns to internal/httpapi and
// internal/middleware. The Supabase-backed store and resolver live in
// internal/database; backend selection happens in cmd/server.
package app
