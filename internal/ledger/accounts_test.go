package ledger

import (
	"testing"

	"banker/internal/account"
	"banker/internal/money"
	"banker/internal/shadow"

	"github.com/rs/zerolog"
)

func newTestAccounts() *Accounts {
	return New(zerolog.Nop())
}

func mustCreateBudget(t *testing.T, a *Accounts, key string) {
	t.Helper()
	if err := a.CreateBudgetAccount(account.ParseKey(key)); err != nil {
		t.Fatalf("CreateBudgetAccount(%q): %v", key, err)
	}
}

func mustCreateSpend(t *testing.T, a *Accounts, key string) {
	t.Helper()
	if err := a.CreateSpendAccount(account.ParseKey(key)); err != nil {
		t.Fatalf("CreateSpendAccount(%q): %v", key, err)
	}
}

func mustSetAvailable(t *testing.T, a *Accounts, key string, amt money.Amount, mode RecycleMode) {
	t.Helper()
	if err := a.SetAvailable(account.ParseKey(key), amt, mode); err != nil {
		t.Fatalf("SetAvailable(%q, %v, %v): %v", key, amt, mode, err)
	}
}

func availableOf(t *testing.T, a *Accounts, key string) int64 {
	t.Helper()
	p, err := a.GetAvailable(account.ParseKey(key))
	if err != nil {
		t.Fatalf("GetAvailable(%q): %v", key, err)
	}
	return p.Get("USD")
}

// TestCreateBudgetAccountAutoCreatesAncestors confirms
// createBudgetAccount("campaign:strategy") implicitly creates
// "campaign" as a Budget account.
func TestCreateBudgetAccountAutoCreatesAncestors(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")

	campaign, err := a.GetAccount(nil, account.ParseKey("campaign"))
	if err != nil {
		t.Fatalf("GetAccount(campaign): %v", err)
	}
	if campaign.Type != account.TypeBudget {
		t.Fatalf("campaign type = %v, want Budget", campaign.Type)
	}
}

// TestSetBudgetRootOnly confirms setBudget is rejected below the root.
func TestSetBudgetRootOnly(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")

	if err := a.SetBudget(account.ParseKey("campaign:strategy"), money.USD(10)); err == nil {
		t.Fatalf("SetBudget on non-root key succeeded, want RootOnlyOperation")
	}
	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(10)); err != nil {
		t.Fatalf("SetBudget on root key: %v", err)
	}
	if got := availableOf(t, a, "campaign"); got != money.USD(10).Units {
		t.Fatalf("campaign available = %d, want %d", got, money.USD(10).Units)
	}
}

// TestAccountHierarchySetAvailable mirrors test_account_hierarchy's
// opening sequence: budget=8, then commitment pulls 2 from budget.
func TestAccountHierarchySetAvailable(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")

	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(8)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	mustSetAvailable(t, a, "campaign:strategy", money.USD(2), AtNone)

	if got := availableOf(t, a, "campaign"); got != money.USD(6).Units {
		t.Fatalf("campaign available = %d, want %d", got, money.USD(6).Units)
	}
	if got := availableOf(t, a, "campaign:strategy"); got != money.USD(2).Units {
		t.Fatalf("strategy available = %d, want %d", got, money.USD(2).Units)
	}
}

// TestSetAvailableSingleHopOnly confirms SetAvailable only ever pulls
// from the immediate parent, never cascading further up the tree, per
// test_account_recycling.
func TestSetAvailableSingleHopOnly(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")
	mustCreateSpend(t, a, "campaign:strategy:spend")

	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(100)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	// strategy has nothing of its own yet; pulling straight from
	// campaign into spend, skipping strategy, must fail even though
	// campaign itself has ample funds.
	err := a.SetAvailable(account.ParseKey("campaign:strategy:spend"), money.USD(10), AtNone)
	if err == nil {
		t.Fatalf("SetAvailable across two hops succeeded, want InsufficientFunds against the immediate parent")
	}
}

// TestSetAvailableRecycleAtBudget mirrors test_account_recycling's use
// of AT_BUDGET: when a Budget sibling can't cover an increase outright,
// recuperating another Budget sibling first lets the retry succeed.
func TestSetAvailableRecycleAtBudget(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")
	mustCreateBudget(t, a, "campaign:strategy2")

	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(10)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	mustSetAvailable(t, a, "campaign:strategy2", money.USD(10), AtNone)
	if got := availableOf(t, a, "campaign"); got != 0 {
		t.Fatalf("campaign available = %d, want 0", got)
	}

	// campaign now has nothing directly available; strategy's own
	// request for 10 must recuperate strategy2's balance through
	// campaign before it can succeed.
	if err := a.SetAvailable(account.ParseKey("campaign:strategy"), money.USD(10), AtBudget); err != nil {
		t.Fatalf("SetAvailable with AT_BUDGET recycling: %v", err)
	}
	if got := availableOf(t, a, "campaign:strategy"); got != money.USD(10).Units {
		t.Fatalf("strategy available = %d, want %d", got, money.USD(10).Units)
	}
	if got := availableOf(t, a, "campaign:strategy2"); got != 0 {
		t.Fatalf("strategy2 available = %d, want 0 after being recuperated", got)
	}
}

// TestAccountsCheckInvariants exercises the tree-level cross-check that
// every parent's allocatedOut matches the sum of its children's
// allocatedIn, on a small tree with genuine allocation flow.
func TestAccountsCheckInvariants(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")
	mustCreateSpend(t, a, "campaign:strategy:spend")

	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(20)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	mustSetAvailable(t, a, "campaign:strategy", money.USD(15), AtNone)
	mustSetAvailable(t, a, "campaign:strategy:spend", money.USD(5), AtNone)

	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

// TestGetAccountSummary confirms getAccountSummary aggregates available
// across a subtree.
func TestGetAccountSummary(t *testing.T) {
	a := newTestAccounts()
	mustCreateBudget(t, a, "campaign")
	mustCreateBudget(t, a, "campaign:strategy")
	mustCreateSpend(t, a, "campaign:strategy:bid0")
	mustCreateSpend(t, a, "campaign:strategy:bid1")

	if err := a.SetBudget(account.ParseKey("campaign"), money.USD(10)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	mustSetAvailable(t, a, "campaign:strategy", money.USD(10), AtNone)
	mustSetAvailable(t, a, "campaign:strategy:bid0", money.USD(3), AtNone)
	mustSetAvailable(t, a, "campaign:strategy:bid1", money.USD(2), AtNone)

	summary, err := a.GetAccountSummary(account.ParseKey("campaign:strategy"))
	if err != nil {
		t.Fatalf("GetAccountSummary: %v", err)
	}
	wantAvailable := money.USD(10).Units // 5 left in strategy + 3 + 2 in children
	if got := summary.Available.Get("USD"); got != wantAvailable {
		t.Fatalf("summary.Available = %d, want %d", got, wantAvailable)
	}
}

// TestApplyDeltaRejectsStaleSequence exercises ApplyDelta's role as
// shadow.MasterClient: the first call at seq 0 succeeds, a repeat at
// seq 0 is rejected as stale.
func TestApplyDeltaRejectsStaleSequence(t *testing.T) {
	a := newTestAccounts()
	mustCreateSpend(t, a, "campaign")
	key := account.ParseKey("campaign")

	spent := money.NewCurrencyPool()
	spent.AddUnits("USD", 500000)
	delta := shadow.Delta{Spent: spent}

	if _, newSeq, err := a.ApplyDelta(nil, key, "shadow-1", 0, delta); err != nil {
		t.Fatalf("first ApplyDelta: %v", err)
	} else if newSeq != 1 {
		t.Fatalf("newSeq = %d, want 1", newSeq)
	}

	if _, _, err := a.ApplyDelta(nil, key, "shadow-1", 0, delta); err == nil {
		t.Fatalf("repeated ApplyDelta at stale seq succeeded, want StaleSync")
	}
}

// TestRestoreAccount confirms a snapshot loaded at startup is visible
// through the normal read path without having gone through
// CreateBudgetAccount/CreateSpendAccount.
func TestRestoreAccount(t *testing.T) {
	a := newTestAccounts()
	key := account.ParseKey("campaign:strategy")

	restored := account.New(account.TypeSpend)
	restored.Available.AddUnits("USD", 750000)
	restored.BudgetIncreases.AddUnits("USD", 750000)
	a.RestoreAccount(key, restored)

	got, err := a.GetAccount(nil, key)
	if err != nil {
		t.Fatalf("GetAccount after restore: %v", err)
	}
	if got.Type != account.TypeSpend {
		t.Fatalf("restored type = %v, want Spend", got.Type)
	}
	if got.Available.Get("USD") != 750000 {
		t.Fatalf("restored available = %d, want 750000", got.Available.Get("USD"))
	}

	if _, err := a.GetAccount(nil, account.ParseKey("campaign")); err == nil {
		t.Fatalf("RestoreAccount must not auto-create ancestors, but campaign exists")
	}
}
