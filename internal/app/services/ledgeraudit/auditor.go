// Package ledgeraudit sweeps the transaction ledger on a schedule and
// reports assets whose history no longer reconciles with their owner.
package ledgeraudit

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// Store is the read surface the auditor needs.
type Store interface {
	storage.AssetLister
	ListTransactions(ctx context.Context, assetID string) ([]asset.Transaction, error)
}

// Recorder publishes sweep results to the metrics endpoint.
type Recorder interface {
	RecordAuditSweep(assetsChecked, violations int)
}

// Violation is a single reconciliation failure.
type Violation struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

// Report summarizes one sweep.
type Report struct {
	AssetsChecked int         `json:"assets_checked"`
	Violations    []Violation `json:"violations,omitempty"`
}

// Auditor runs ledger sweeps on a cron schedule.
type Auditor struct {
	store    Store
	schedule string
	recorder Recorder
	log      *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
	last Report
}

// New constructs an auditor. Schedule uses standard cron syntax, e.g.
// "*/5 * * * *".
func New(store Store, schedule string, log *logger.Logger) *Auditor {
	if log == nil {
		log = logger.NewDefault("ledger-audit")
	}
	if schedule == "" {
		schedule = "*/5 * * * *"
	}
	return &Auditor{store: store, schedule: schedule, log: log}
}

// SetRecorder wires sweep metrics. Optional.
func (a *Auditor) SetRecorder(rec Recorder) { a.recorder = rec }

// Name implements system.Service.
func (a *Auditor) Name() string { return "ledger-audit" }

// Start schedules periodic sweeps and returns immediately.
func (a *Auditor) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return fmt.Errorf("ledger auditor already started")
	}

	c := cron.New()
	_, err := c.AddFunc(a.schedule, func() {
		if _, err := a.Run(context.Background()); err != nil {
			a.log.WithError(err).Error("ledger sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", a.schedule, err)
	}
	c.Start()
	a.cron = c
	a.log.WithField("schedule", a.schedule).Info("ledger auditor started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (a *Auditor) Stop(ctx context.Context) error {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one full sweep. Every asset's transaction chain must link
// from one holder to the next, and the final recipient must match the
// asset's current owner.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	assets, err := a.store.ListAssets(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing assets: %w", err)
	}

	report := Report{AssetsChecked: len(assets)}
	for _, item := range assets {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		history, err := a.store.ListTransactions(ctx, item.ID)
		if err != nil {
			return Report{}, fmt.Errorf("listing transactions for %s: %w", item.ID, err)
		}
		if v, ok := checkChain(item, history); !ok {
			report.Violations = append(report.Violations, v)
		}
	}

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	if a.recorder != nil {
		a.recorder.RecordAuditSweep(report.AssetsChecked, len(report.Violations))
	}
	entry := a.log.WithField("assets_checked", report.AssetsChecked).
		WithField("violations", len(report.Violations))
	if len(report.Violations) > 0 {
		entry.Warn("ledger sweep found violations")
	} else {
		entry.Debug("ledger sweep clean")
	}
	return report, nil
}

// LastReport returns the most recent sweep result.
func (a *Auditor) LastReport() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func checkChain(item asset.Asset, history []asset.Transaction) (Violation, bool) {
	if len(history) == 0 {
		return Violation{}, true
	}
	for i := 1; i < len(history); i++ {
		if history[i].FromUserID != history[i-1].ToUserID {
			return Violation{
				AssetID: item.ID,
				Reason: fmt.Sprintf("transaction %s does not continue from %s",
					history[i].ID, history[i-1].ID),
			}, false
		}
	}
	last := history[len(history)-1]
	if last.ToUserID != item.Owner {
		return Violation{
			AssetID: item.ID,
			Reason: fmt.Sprintf("owner %s does not match last recipient %s",
				item.Owner, last.ToUserID),
		}, false
	}
	return Violation{}, true
}
