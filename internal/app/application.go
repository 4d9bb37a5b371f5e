package app

import (
	"context"
	"fmt"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/identity"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/metrics"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/services/catalog"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/services/ledgeraudit"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/services/transfer"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage/memory"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/system"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to
// the in-memory implementation.
type Stores struct {
	Assets storage.AssetStore
}

// Options carries optional wiring. Everything here can stay zero.
type Options struct {
	// Cache enables the catalog read-through cache.
	Cache catalog.Cache
	// AuditSchedule is the cron expression for ledger sweeps. The sweep is
	// registered only when the store can enumerate assets.
	AuditSchedule string
	// DisableAudit turns the periodic ledger sweep off entirely.
	DisableAudit bool
}

// Application ties the domain services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Catalog  *catalog.Service
	Transfer *transfer.Service
	Auditor  *ledgeraudit.Auditor
	Resolver identity.Resolver
}

// New builds a fully initialised application with the provided stores and
// identity resolver.
func New(stores Stores, resolver identity.Resolver, log *logger.Logger, opts Options) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if resolver == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if stores.Assets == nil {
		stores.Assets = memory.New()
	}

	manager := system.NewManager()

	catalogSvc := catalog.New(stores.Assets, log)
	if opts.Cache != nil {
		catalogSvc.AttachCache(opts.Cache)
	}

	transferSvc := transfer.New(stores.Assets, resolver, log)
	transferSvc.SetInvalidator(catalogSvc)
	transferSvc.SetRecorder(metrics.Collector{})

	if err := manager.Register(system.NoopService{ServiceName: "catalog"}); err != nil {
		return nil, fmt.Errorf("register catalog service: %w", err)
	}

	appl := &Application{
		manager:  manager,
		log:      log,
		Catalog:  catalogSvc,
		Transfer: transferSvc,
		Resolver: resolver,
	}

	if !opts.DisableAudit {
		auditStore, ok := stores.Assets.(ledgeraudit.Store)
		if !ok {
			log.Warn("asset store cannot enumerate assets; ledger sweeps disabled")
			return appl, nil
		}
		auditor := ledgeraudit.New(auditStore, opts.AuditSchedule, log)
		auditor.SetRecorder(metrics.Collector{})
		if err := manager.Register(auditor); err != nil {
			return nil, fmt.Errorf("register ledger auditor: %w", err)
		}
		appl.Auditor = auditor
	}

	return appl, nil
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
