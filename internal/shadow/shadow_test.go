package shadow

import (
	"context"
	"testing"

	"banker/internal/account"
	"banker/internal/money"
)

// fakeMaster is a minimal in-memory MasterClient for exercising the
// sync protocol without pulling in the ledger package (which itself
// depends on this one for Delta).
type fakeMaster struct {
	key     account.Key
	acc     *account.Account
	nextSeq map[string]int64
}

func newFakeMaster(key account.Key, acc *account.Account) *fakeMaster {
	return &fakeMaster{key: key, acc: acc, nextSeq: make(map[string]int64)}
}

func (f *fakeMaster) GetAccount(ctx context.Context, key account.Key) (*account.Account, error) {
	return f.acc.Clone(), nil
}

func (f *fakeMaster) ApplyDelta(ctx context.Context, key account.Key, shadowID string, seq int64, delta Delta) (*account.Account, int64, error) {
	partition := key.String() + "|" + shadowID
	if seq != f.nextSeq[partition] {
		return nil, 0, &staleSyncErr{}
	}
	ApplyToAccount(f.acc, delta)
	f.nextSeq[partition] = seq + 1
	return f.acc.Clone(), f.nextSeq[partition], nil
}

type staleSyncErr struct{}

func (e *staleSyncErr) Error() string { return "stale sync" }

func seedSpendAccount(t *testing.T, available int64) *account.Account {
	t.Helper()
	a := account.New(account.TypeSpend)
	a.Available.AddUnits("USD", available)
	a.AllocatedIn.AddUnits("USD", available)
	return a
}

func TestAuthorizeCancelBid(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(5).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:spend"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(2)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	if got := sh.Available().Get("USD"); got != money.USD(3).Units {
		t.Fatalf("available after authorize = %d, want %d", got, money.USD(3).Units)
	}
	if err := sh.CancelBid("ad1"); err != nil {
		t.Fatalf("CancelBid: %v", err)
	}
	if got := sh.Available().Get("USD"); got != money.USD(5).Units {
		t.Fatalf("available after cancel = %d, want %d", got, money.USD(5).Units)
	}
	if err := sh.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after cancel: %v", err)
	}
}

func TestAuthorizeInsufficientFunds(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(1).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:spend"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(2)); err == nil {
		t.Fatalf("AuthorizeBid over available succeeded, want InsufficientFunds")
	}
}

func TestDuplicateBidRejected(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(5).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:spend"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(1)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	if err := sh.AuthorizeBid("ad1", money.USD(1)); err == nil {
		t.Fatalf("duplicate AuthorizeBid succeeded, want DuplicateBid")
	}
}

func TestCommitBidCreditsRemainder(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(5).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:spend"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(2)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	if err := sh.CommitBid("ad1", money.USDMicros(500000), nil); err != nil {
		t.Fatalf("CommitBid: %v", err)
	}
	// authorized 2, spent 0.5: 1.5 comes back to available, plus the
	// 3 never authorized in the first place.
	if got := sh.Available().Get("USD"); got != money.USD(4).Units+500000 {
		t.Fatalf("available after commit = %d, want %d", got, money.USD(4).Units+500000)
	}
	if got := sh.current.Spent.Get("USD"); got != 500000 {
		t.Fatalf("spent = %d, want 500000", got)
	}
	if err := sh.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after commit: %v", err)
	}
}

func TestCommitBidRejectsOverspend(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(5).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:spend"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(1)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	if err := sh.CommitBid("ad1", money.USD(2), nil); err == nil {
		t.Fatalf("CommitBid above authorized succeeded, want SpentExceedsAuthorized")
	}
}

func TestDetachAndCommitDetachedBid(t *testing.T) {
	acc := seedSpendAccount(t, money.USD(5).Units)
	sh := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:bid0"), acc)

	if err := sh.AuthorizeBid("ad1", money.USD(1)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	detached, err := sh.DetachBid("ad1")
	if err != nil {
		t.Fatalf("DetachBid: %v", err)
	}
	if _, err := sh.DetachBid("ad1"); err == nil {
		t.Fatalf("second DetachBid on same bid succeeded, want UnknownBid")
	}

	commitAcc := seedSpendAccount(t, 0)
	commitShadow := NewShadowAccount("bidder-1", account.ParseKey("campaign:strategy:commit0"), commitAcc)
	if err := commitShadow.CommitDetachedBid(detached, money.USDMicros(500000), nil); err != nil {
		t.Fatalf("CommitDetachedBid: %v", err)
	}
	if got := commitShadow.current.Spent.Get("USD"); got != 500000 {
		t.Fatalf("commit account spent = %d, want 500000", got)
	}
	if got := commitShadow.Available().Get("USD"); got != 500000 {
		t.Fatalf("commit account available = %d, want 500000 (remainder credited back)", got)
	}
	if err := commitShadow.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants on commit account: %v", err)
	}
	// the detaching shadow's own account is untouched: its commitmentsMade
	// already permanently recorded the authorization, and the handoff
	// leaves no dangling retirement obligation on this side.
	if err := sh.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants on detaching account: %v", err)
	}
}

// TestSyncFromPreservesPendingLocalDelta exercises the scenario the sync
// merge rule exists to protect: a shadow authorizes a bid, then runs
// SyncFrom (picking up unrelated master-side progress) before it has had a
// chance to SyncTo. The pending authorize must survive the merge and still
// reach the master on the next SyncTo.
func TestSyncFromPreservesPendingLocalDelta(t *testing.T) {
	key := account.ParseKey("campaign:strategy:spend")
	masterAcc := seedSpendAccount(t, money.USD(5).Units)
	master := newFakeMaster(key, masterAcc)
	ctx := context.Background()

	sh := NewShadowAccount("bidder-1", key, masterAcc.Clone())

	if err := sh.AuthorizeBid("ad1", money.USD(2)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}

	// Someone else raises the master's budget in a way this shadow
	// hasn't seen yet (simulated by mutating the master directly, as a
	// setBudget call elsewhere would).
	masterAcc.BudgetIncreases.AddUnits("USD", money.USD(1).Units)
	masterAcc.Available.AddUnits("USD", money.USD(1).Units)

	if err := sh.SyncFrom(ctx, master); err != nil {
		t.Fatalf("SyncFrom: %v", err)
	}
	if err := sh.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after SyncFrom: %v", err)
	}

	if err := sh.CommitBid("ad1", money.USD(2), nil); err != nil {
		t.Fatalf("CommitBid: %v", err)
	}
	if err := sh.SyncTo(ctx, master); err != nil {
		t.Fatalf("SyncTo: %v", err)
	}
	if got := master.acc.Spent.Get("USD"); got != money.USD(2).Units {
		t.Fatalf("master spent after SyncTo = %d, want %d (authorize+commit must have reached the master)", got, money.USD(2).Units)
	}
	if err := master.acc.CheckInvariants("campaign:strategy:spend"); err != nil {
		t.Fatalf("master CheckInvariants: %v", err)
	}
}

func TestSyncToThenSyncFromRoundTrip(t *testing.T) {
	masterAcc := seedSpendAccount(t, money.USD(5).Units)
	key := account.ParseKey("campaign:strategy:spend")
	master := newFakeMaster(key, masterAcc)

	sh := NewShadowAccount("bidder-1", key, masterAcc.Clone())
	if err := sh.AuthorizeBid("ad1", money.USD(2)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	if err := sh.CommitBid("ad1", money.USD(1), nil); err != nil {
		t.Fatalf("CommitBid: %v", err)
	}

	ctx := context.Background()
	if err := sh.SyncTo(ctx, master); err != nil {
		t.Fatalf("SyncTo: %v", err)
	}
	if got := master.acc.Spent.Get("USD"); got != money.USD(1).Units {
		t.Fatalf("master spent after SyncTo = %d, want %d", got, money.USD(1).Units)
	}

	// a second SyncTo with nothing new outstanding must be a no-op,
	// not a StaleSync error.
	if err := sh.SyncTo(ctx, master); err != nil {
		t.Fatalf("second no-op SyncTo: %v", err)
	}

	if err := sh.SyncFrom(ctx, master); err != nil {
		t.Fatalf("SyncFrom: %v", err)
	}
}

func TestShadowAccountsActivateAndAuthorize(t *testing.T) {
	key := account.ParseKey("campaign:strategy:spend")
	masterAcc := seedSpendAccount(t, money.USD(5).Units)
	master := newFakeMaster(key, masterAcc)

	shs := New("bidder-1", master)
	ctx := context.Background()
	if err := shs.ActivateAccount(ctx, key); err != nil {
		t.Fatalf("ActivateAccount: %v", err)
	}
	if err := shs.AuthorizeBid(key, "ad1", money.USD(1)); err != nil {
		t.Fatalf("AuthorizeBid: %v", err)
	}
	avail, err := shs.Available(key)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if got := avail.Get("USD"); got != money.USD(4).Units {
		t.Fatalf("available = %d, want %d", got, money.USD(4).Units)
	}

	if err := shs.SyncTo(ctx); err != nil {
		t.Fatalf("SyncTo: %v", err)
	}
}
