package ledger

import "banker/internal/money"

// AccountSummary aggregates an account and every account beneath it in
// the tree into a single set of totals.
type AccountSummary struct {
	Key       string
	Budget    money.CurrencyPool
	Spent     money.CurrencyPool
	Available money.CurrencyPool
	InFlight  money.CurrencyPool
}

func newSummary(key string) *AccountSummary {
	return &AccountSummary{
		Key:       key,
		Budget:    money.NewCurrencyPool(),
		Spent:     money.NewCurrencyPool(),
		Available: money.NewCurrencyPool(),
		InFlight:  money.NewCurrencyPool(),
	}
}
