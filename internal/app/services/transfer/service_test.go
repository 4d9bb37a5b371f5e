package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/storage/memory"
	svcerrors "github.com/morarasu-alexandru/nft-collection-manager/internal/errors"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/testutil"
)

const (
	aliceID    = "11111111-1111-1111-1111-111111111111"
	bobID      = "22222222-2222-2222-2222-222222222222"
	carolID    = "33333333-3333-3333-3333-333333333333"
	bobEmail   = "bob@example.com"
	carolEmail = "carol@example.com"
)

func newFixture(t *testing.T) (*Service, *memory.Store, asset.Asset) {
	t.Helper()
	store := memory.New()
	resolver := testutil.NewMockResolver()
	resolver.AddUser("tok-alice", aliceID, "alice@example.com")
	resolver.AddUser("tok-bob", bobID, bobEmail)
	resolver.AddUser("tok-carol", carolID, carolEmail)

	a, err := store.CreateAsset(context.Background(), asset.Asset{
		Name:  "Genesis Block",
		Owner: aliceID,
	})
	if err != nil {
		t.Fatalf("CreateAsset failed: %v", err)
	}
	return New(store, resolver, nil), store, a
}

func TestTransferCommits(t *testing.T) {
	svc, store, a := newFixture(t)
	ctx := context.Background()

	msg, err := svc.Transfer(ctx, a.ID, aliceID, aliceID, bobEmail)
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if msg != ConfirmationMessage {
		t.Fatalf("unexpected confirmation %q", msg)
	}

	got, err := store.GetAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.Owner != bobID {
		t.Fatalf("expected owner %s, got %s", bobID, got.Owner)
	}
	history, err := store.ListTransactions(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(history))
	}
	if history[0].FromUserID != aliceID || history[0].ToUserID != bobID {
		t.Fatalf("unexpected transaction %+v", history[0])
	}
}

func TestTransferUnauthenticated(t *testing.T) {
	svc, _, a := newFixture(t)

	_, err := svc.Transfer(context.Background(), a.ID, "", aliceID, bobEmail)
	if !errors.Is(err, svcerrors.Unauthenticated("")) {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}
}

func TestTransferCallerMismatch(t *testing.T) {
	svc, store, a := newFixture(t)

	_, err := svc.Transfer(context.Background(), a.ID, bobID, aliceID, carolEmail)
	if !errors.Is(err, svcerrors.Forbidden("")) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	got, _ := store.GetAsset(context.Background(), a.ID)
	if got.Owner != aliceID {
		t.Fatalf("owner must be untouched, got %s", got.Owner)
	}
}

func TestTransferAssetNotFound(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.Transfer(context.Background(), "missing-asset", aliceID, aliceID, bobEmail)
	if !errors.Is(err, svcerrors.NotFound("asset", "missing-asset")) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestTransferStaleOwner(t *testing.T) {
	svc, store, a := newFixture(t)
	ctx := context.Background()

	// Bob already holds the asset; Alice's view is stale.
	if _, err := store.TransferAsset(ctx, a.ID, aliceID, bobID); err != nil {
		t.Fatalf("TransferAsset failed: %v", err)
	}

	_, err := svc.Transfer(ctx, a.ID, aliceID, aliceID, carolEmail)
	if !errors.Is(err, svcerrors.Forbidden("")) {
		t.Fatalf("expected FORBIDDEN for stale owner, got %v", err)
	}
}

func TestTransferRecipientNotFound(t *testing.T) {
	svc, store, a := newFixture(t)

	_, err := svc.Transfer(context.Background(), a.ID, aliceID, aliceID, "ghost@example.com")
	if !errors.Is(err, svcerrors.RecipientNotFound("")) {
		t.Fatalf("expected RECIPIENT_NOT_FOUND, got %v", err)
	}
	svcErr := svcerrors.GetServiceError(err)
	if svcErr == nil || svcErr.Details["email"] != "ghost@example.com" {
		t.Fatalf("expected the email in details, got %+v", svcErr)
	}

	got, _ := store.GetAsset(context.Background(), a.ID)
	if got.Owner != aliceID {
		t.Fatalf("owner must be untouched, got %s", got.Owner)
	}
}

func TestTransferMalformedEmailNeverTouchesStore(t *testing.T) {
	store := memory.New()
	failing := &testutil.FailingStore{Inner: store, Err: errors.New("store must not be called")}
	resolver := testutil.NewMockResolver()
	svc := New(failing, resolver, nil)

	_, err := svc.Transfer(context.Background(), "asset-1", aliceID, aliceID, "not-an-email")
	if !errors.Is(err, svcerrors.Validation("")) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestTransferCheckOrderCallerBeforeExistence(t *testing.T) {
	// A mismatched caller must lose before the missing asset is noticed.
	svc, _, _ := newFixture(t)

	_, err := svc.Transfer(context.Background(), "missing-asset", bobID, aliceID, carolEmail)
	if !errors.Is(err, svcerrors.Forbidden("")) {
		t.Fatalf("expected FORBIDDEN to win over NOT_FOUND, got %v", err)
	}
}

func TestTransferConflictPropagates(t *testing.T) {
	svc, store, a := newFixture(t)
	ctx := context.Background()

	// Swap the owner between the orchestrator's read and the commit by
	// wrapping the store read path.
	raced := &racingStore{Store: store, onGet: func() {
		store.TransferAsset(ctx, a.ID, aliceID, carolID)
	}}
	svc = New(raced, resolverFor(t), nil)

	_, err := svc.Transfer(ctx, a.ID, aliceID, aliceID, bobEmail)
	if !errors.Is(err, svcerrors.Conflict("")) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	got, _ := store.GetAsset(ctx, a.ID)
	if got.Owner != carolID {
		t.Fatalf("winner's ownership must stand, got %s", got.Owner)
	}
	history, _ := store.ListTransactions(ctx, a.ID)
	if len(history) != 1 {
		t.Fatalf("loser must not append a transaction, got %d", len(history))
	}
}

func TestConcurrentTransfersExactlyOneWins(t *testing.T) {
	svc, store, a := newFixture(t)
	ctx := context.Background()

	const goroutines = 8
	results := make([]error, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			email := bobEmail
			if i%2 == 1 {
				email = carolEmail
			}
			_, results[i] = svc.Transfer(ctx, a.ID, aliceID, aliceID, email)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		if !errors.Is(err, svcerrors.Conflict("")) && !errors.Is(err, svcerrors.Forbidden("")) {
			t.Fatalf("loser must fail with CONFLICT or FORBIDDEN, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	history, _ := store.ListTransactions(ctx, a.ID)
	if len(history) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(history))
	}
}

func TestTransferRecordsOutcomes(t *testing.T) {
	svc, _, a := newFixture(t)
	rec := &captureRecorder{}
	svc.SetRecorder(rec)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, a.ID, aliceID, aliceID, bobEmail); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	svc.Transfer(ctx, a.ID, aliceID, aliceID, carolEmail)

	if len(rec.outcomes) != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", len(rec.outcomes))
	}
	if rec.outcomes[0] != "committed" || rec.outcomes[1] != "forbidden" {
		t.Fatalf("unexpected outcomes %v", rec.outcomes)
	}
}

func resolverFor(t *testing.T) *testutil.MockResolver {
	t.Helper()
	resolver := testutil.NewMockResolver()
	resolver.AddUser("tok-alice", aliceID, "alice@example.com")
	resolver.AddUser("tok-bob", bobID, bobEmail)
	resolver.AddUser("tok-carol", carolID, carolEmail)
	return resolver
}

type racingStore struct {
	*memory.Store
	once  sync.Once
	onGet func()
}

func (r *racingStore) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	a, err := r.Store.GetAsset(ctx, id)
	r.once.Do(r.onGet)
	return a, err
}

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (c *captureRecorder) RecordTransfer(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}
