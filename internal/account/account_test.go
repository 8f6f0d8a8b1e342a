package account_test

import (
	"testing"

	"banker/internal/account"
	"banker/internal/money"
)

func TestSetBudgetZigzag(t *testing.T) {
	a := account.New(account.TypeBudget)

	mustSetBudget(t, a, money.USD(8))
	assertUSD(t, "available", a.Available, 8)
	assertUSD(t, "budgetIncreases", a.BudgetIncreases, 8)
	assertUSD(t, "budgetDecreases", a.BudgetDecreases, 0)

	mustSetBudget(t, a, money.USD(7))
	assertUSD(t, "available", a.Available, 7)
	assertUSD(t, "budgetIncreases", a.BudgetIncreases, 8)
	assertUSD(t, "budgetDecreases", a.BudgetDecreases, 1)

	mustSetBudget(t, a, money.USD(8))
	assertUSD(t, "available", a.Available, 8)
	assertUSD(t, "budgetIncreases", a.BudgetIncreases, 9)
	assertUSD(t, "budgetDecreases", a.BudgetDecreases, 1)

	mustSetBudget(t, a, money.USD(13))
	assertUSD(t, "available", a.Available, 13)
	assertUSD(t, "budgetIncreases", a.BudgetIncreases, 14)
	assertUSD(t, "budgetDecreases", a.BudgetDecreases, 1)

	// Directly reach a state where 10 of the 13 USD budget is already
	// allocated out, leaving only 3 available, as test scaffolding.
	a.AllocatedOut.AddUnits("USD", money.USD(10).Units)
	a.Available.SubUnits("USD", money.USD(10).Units)
	if err := a.CheckInvariants("test"); err != nil {
		t.Fatalf("checkInvariants after direct mutation: %v", err)
	}

	if err := a.SetBudget("test", money.USD(9)); err == nil {
		t.Fatalf("setBudget(9) should fail: minimum reachable budget is 10")
	}

	mustSetBudget(t, a, money.USD(10))
	assertUSD(t, "available", a.Available, 0)
}

func TestSetBudgetFreshAccount(t *testing.T) {
	a := account.New(account.TypeNone)
	if !a.Available.IsZero() {
		t.Fatalf("fresh account should have zero available")
	}
	mustSetBudget(t, a, money.USD(10))
	if got := a.BudgetIncreases.Get("USD"); got != money.USD(10).Units {
		t.Errorf("budgetIncreases = %d, want %d", got, money.USD(10).Units)
	}
}

func TestAccountHierarchySetAvailable(t *testing.T) {
	budget := account.New(account.TypeBudget)
	mustSetBudget(t, budget, money.USD(10))

	commitment := account.New(account.TypeSpend)
	if err := commitment.SetAvailable("commitment", budget, money.USD(2)); err != nil {
		t.Fatalf("setAvailable: %v", err)
	}

	assertUSD(t, "budget.available", budget.Available, 8)
	assertUSD(t, "commitment.available", commitment.Available, 2)

	if err := budget.CheckInvariants("budget"); err != nil {
		t.Errorf("budget invariants: %v", err)
	}
	if err := commitment.CheckInvariants("commitment"); err != nil {
		t.Errorf("commitment invariants: %v", err)
	}
}

func TestSetAvailableInsufficientFunds(t *testing.T) {
	budget := account.New(account.TypeBudget)
	mustSetBudget(t, budget, money.USD(1))

	child := account.New(account.TypeSpend)
	if err := child.SetAvailable("child", budget, money.USD(5)); err == nil {
		t.Fatalf("expected InsufficientFunds when parent lacks funds")
	}
}

func TestRecuperateToIsIdempotent(t *testing.T) {
	budget := account.New(account.TypeBudget)
	mustSetBudget(t, budget, money.USD(10))

	spend := account.New(account.TypeSpend)
	if err := spend.SetAvailable("spend", budget, money.USD(4)); err != nil {
		t.Fatalf("setAvailable: %v", err)
	}

	spend.RecuperateTo(budget)
	assertUSD(t, "budget.available after recuperate", budget.Available, 10)
	assertUSD(t, "spend.available after recuperate", spend.Available, 0)

	// Second call with nothing left to recuperate is a no-op.
	spend.RecuperateTo(budget)
	assertUSD(t, "budget.available after second recuperate", budget.Available, 10)
}

func mustSetBudget(t *testing.T, a *account.Account, target money.Amount) {
	t.Helper()
	if err := a.SetBudget("test", target); err != nil {
		t.Fatalf("setBudget(%v): %v", target, err)
	}
}

func assertUSD(t *testing.T, label string, pool money.CurrencyPool, dollars int64) {
	t.Helper()
	want := money.USD(dollars).Units
	if got := pool.Get("USD"); got != want {
		t.Errorf("%s = %d, want %d", label, got, want)
	}
}
