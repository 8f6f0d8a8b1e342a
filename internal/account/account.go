package account

import (
	"encoding/json"

	"banker/internal/bankerrors"
	"banker/internal/money"
)

// Type discriminates the two kinds of account in the tree: Budget
// accounts hold and push down budget, Spend accounts are leaves that
// authorize bids and record spend. None is the zero value and is never
// a valid account's type once created.
type Type int

const (
	TypeNone Type = iota
	TypeBudget
	TypeSpend
)

func (t Type) String() string {
	switch t {
	case TypeBudget:
		return "budget"
	case TypeSpend:
		return "spend"
	default:
		return "none"
	}
}

// Account is a single node in the budget tree. All thirteen balance
// fields are CurrencyPools so a single account can carry balances in
// more than one currency at once. Fields are exported so the shadow
// package can apply its bid and sync bookkeeping to them, and so tests
// may mutate them directly to reach a state cheaply before exercising
// CheckInvariants.
type Account struct {
	Type Type

	BudgetIncreases money.CurrencyPool
	BudgetDecreases money.CurrencyPool

	RecycledIn  money.CurrencyPool
	RecycledOut money.CurrencyPool

	AllocatedIn  money.CurrencyPool
	AllocatedOut money.CurrencyPool

	CommitmentsMade    money.CurrencyPool
	CommitmentsRetired money.CurrencyPool

	AdjustmentsIn  money.CurrencyPool
	AdjustmentsOut money.CurrencyPool

	Spent     money.CurrencyPool
	Available money.CurrencyPool

	LineItems           money.LineItems
	AdjustmentLineItems money.LineItems
}

// New returns a zeroed account of the given type with every pool
// initialized (never nil), matching the wire format's expectation that
// every field is present even when empty.
func New(t Type) *Account {
	return &Account{
		Type:                t,
		BudgetIncreases:     money.NewCurrencyPool(),
		BudgetDecreases:     money.NewCurrencyPool(),
		RecycledIn:          money.NewCurrencyPool(),
		RecycledOut:         money.NewCurrencyPool(),
		AllocatedIn:         money.NewCurrencyPool(),
		AllocatedOut:        money.NewCurrencyPool(),
		CommitmentsMade:     money.NewCurrencyPool(),
		CommitmentsRetired:  money.NewCurrencyPool(),
		AdjustmentsIn:       money.NewCurrencyPool(),
		AdjustmentsOut:      money.NewCurrencyPool(),
		Spent:               money.NewCurrencyPool(),
		Available:           money.NewCurrencyPool(),
		LineItems:           money.NewLineItems(),
		AdjustmentLineItems: money.NewLineItems(),
	}
}

// Clone returns a deep, independent copy of a.
func (a *Account) Clone() *Account {
	return &Account{
		Type:                a.Type,
		BudgetIncreases:     a.BudgetIncreases.Clone(),
		BudgetDecreases:     a.BudgetDecreases.Clone(),
		RecycledIn:          a.RecycledIn.Clone(),
		RecycledOut:         a.RecycledOut.Clone(),
		AllocatedIn:         a.AllocatedIn.Clone(),
		AllocatedOut:        a.AllocatedOut.Clone(),
		CommitmentsMade:     a.CommitmentsMade.Clone(),
		CommitmentsRetired:  a.CommitmentsRetired.Clone(),
		AdjustmentsIn:       a.AdjustmentsIn.Clone(),
		AdjustmentsOut:      a.AdjustmentsOut.Clone(),
		Spent:               a.Spent.Clone(),
		Available:           a.Available.Clone(),
		LineItems:           a.LineItems.Clone(),
		AdjustmentLineItems: a.AdjustmentLineItems.Clone(),
	}
}

// SetBudget adjusts this account's net budget (budgetIncreases minus
// budgetDecreases) to target.Units in target's currency, crediting
// available by the same delta. A downward adjustment is limited by
// available: it can never push available below zero, and fails with
// BudgetExceedsAvailable if the requested target cannot be reached
// without doing so. keyForErr names the account in any error raised.
func (a *Account) SetBudget(keyForErr string, target money.Amount) error {
	cur := target.Currency
	net := a.BudgetIncreases.Get(cur) - a.BudgetDecreases.Get(cur)
	b := target.Units

	switch {
	case b > net:
		delta := b - net
		a.BudgetIncreases.AddUnits(cur, delta)
		a.Available.AddUnits(cur, delta)
	case b < net:
		delta := net - b
		avail := a.Available.Get(cur)
		if avail < delta {
			return &bankerrors.BudgetExceedsAvailable{
				Account:    keyForErr,
				Currency:   cur,
				Requested:  b,
				MinAllowed: net - avail,
			}
		}
		a.Available.SubUnits(cur, delta)
		a.BudgetDecreases.AddUnits(cur, delta)
	}
	return nil
}

// SetAvailable moves funds across the boundary between a and parent so
// that a.Available reaches target.Units in target's currency. Raising
// available debits parent.Available and credits a.AllocatedIn plus
// a.Available, mirrored by parent.AllocatedOut; lowering available is
// the same flow in reverse. Raising fails with InsufficientFunds if
// parent cannot cover the increase.
func (a *Account) SetAvailable(keyForErr string, parent *Account, target money.Amount) error {
	cur := target.Currency
	have := a.Available.Get(cur)
	want := target.Units

	switch {
	case want > have:
		delta := want - have
		if parent.Available.Get(cur) < delta {
			return &bankerrors.InsufficientFunds{
				Account:   keyForErr,
				Currency:  cur,
				Requested: delta,
				Available: parent.Available.Get(cur),
			}
		}
		parent.Available.SubUnits(cur, delta)
		parent.AllocatedOut.AddUnits(cur, delta)
		a.AllocatedIn.AddUnits(cur, delta)
		a.Available.AddUnits(cur, delta)
	case want < have:
		delta := have - want
		a.Available.SubUnits(cur, delta)
		a.AllocatedOut.AddUnits(cur, delta)
		parent.AllocatedIn.AddUnits(cur, delta)
		parent.Available.AddUnits(cur, delta)
	}
	return nil
}

// RecuperateTo sweeps all of a's available funds, in every currency,
// back up to parent. It is idempotent: an account with nothing
// available is left untouched.
func (a *Account) RecuperateTo(parent *Account) {
	for _, cur := range a.Available.Currencies() {
		amt := a.Available.Get(cur)
		if amt == 0 {
			continue
		}
		a.Available.SubUnits(cur, amt)
		a.RecycledOut.AddUnits(cur, amt)
		parent.RecycledIn.AddUnits(cur, amt)
		parent.Available.AddUnits(cur, amt)
	}
}

// currencies returns the union of every currency appearing in any of
// a's balance pools, so CheckInvariants can sweep each one.
func (a *Account) currencies() []string {
	seen := make(map[string]struct{})
	pools := []money.CurrencyPool{
		a.BudgetIncreases, a.BudgetDecreases,
		a.RecycledIn, a.RecycledOut,
		a.AllocatedIn, a.AllocatedOut,
		a.CommitmentsMade, a.CommitmentsRetired,
		a.AdjustmentsIn, a.AdjustmentsOut,
		a.Spent, a.Available,
	}
	for _, p := range pools {
		for cur := range p {
			seen[cur] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cur := range seen {
		out = append(out, cur)
	}
	return out
}

// CheckInvariants verifies the closed balance equation and
// non-negativity of every balance field, in every currency the account
// has ever touched. keyForErr names the account in any error raised.
func (a *Account) CheckInvariants(keyForErr string) error {
	pools := map[string]money.CurrencyPool{
		"budgetIncreases":    a.BudgetIncreases,
		"budgetDecreases":    a.BudgetDecreases,
		"recycledIn":         a.RecycledIn,
		"recycledOut":        a.RecycledOut,
		"allocatedIn":        a.AllocatedIn,
		"allocatedOut":       a.AllocatedOut,
		"commitmentsMade":    a.CommitmentsMade,
		"commitmentsRetired": a.CommitmentsRetired,
		"adjustmentsIn":      a.AdjustmentsIn,
		"adjustmentsOut":     a.AdjustmentsOut,
		"spent":              a.Spent,
		"available":          a.Available,
	}
	for field, pool := range pools {
		for cur, v := range pool {
			if v < 0 {
				return &bankerrors.InvariantViolation{
					Account: keyForErr,
					Field:   field,
					Detail:  "negative balance in currency " + cur,
				}
			}
		}
	}

	for _, cur := range a.currencies() {
		in := a.BudgetIncreases.Get(cur) + a.RecycledIn.Get(cur) + a.AllocatedIn.Get(cur) +
			a.CommitmentsRetired.Get(cur) + a.AdjustmentsIn.Get(cur)
		out := a.BudgetDecreases.Get(cur) + a.RecycledOut.Get(cur) + a.AllocatedOut.Get(cur) +
			a.CommitmentsMade.Get(cur) + a.AdjustmentsOut.Get(cur) + a.Spent.Get(cur) + a.Available.Get(cur)
		if in != out {
			return &bankerrors.InvariantViolation{
				Account: keyForErr,
				Field:   "balance",
				Detail:  cur + ": inflows and outflows do not match",
			}
		}
	}
	return nil
}

// wireAccount mirrors the account's JSON wire shape.
type wireAccount struct {
	Metadata struct {
		ObjectType string `json:"objectType"`
		Version    int    `json:"version"`
	} `json:"md"`
	Type                string             `json:"type"`
	BudgetIncreases     money.CurrencyPool `json:"budgetIncreases"`
	BudgetDecreases     money.CurrencyPool `json:"budgetDecreases"`
	Spent               money.CurrencyPool `json:"spent"`
	RecycledIn          money.CurrencyPool `json:"recycledIn"`
	RecycledOut         money.CurrencyPool `json:"recycledOut"`
	AllocatedIn         money.CurrencyPool `json:"allocatedIn"`
	AllocatedOut        money.CurrencyPool `json:"allocatedOut"`
	CommitmentsMade     money.CurrencyPool `json:"commitmentsMade"`
	CommitmentsRetired  money.CurrencyPool `json:"commitmentsRetired"`
	AdjustmentsIn       money.CurrencyPool `json:"adjustmentsIn"`
	AdjustmentsOut      money.CurrencyPool `json:"adjustmentsOut"`
	Available           money.CurrencyPool `json:"available"`
	LineItems           money.LineItems    `json:"lineItems"`
	AdjustmentLineItems money.LineItems    `json:"adjustmentLineItems"`
}

func typeWireName(t Type) string {
	switch t {
	case TypeBudget:
		return "budget"
	case TypeSpend:
		return "spend"
	default:
		return "none"
	}
}

func typeFromWireName(s string) Type {
	switch s {
	case "budget":
		return TypeBudget
	case "spend":
		return TypeSpend
	default:
		return TypeNone
	}
}

// MarshalJSON encodes the account in its JSON wire format. available
// is included for external consumers even though it is a derived
// field, so a reader never has to recompute it from the other pools.
func (a *Account) MarshalJSON() ([]byte, error) {
	w := wireAccount{
		Type:                typeWireName(a.Type),
		BudgetIncreases:     a.BudgetIncreases,
		BudgetDecreases:     a.BudgetDecreases,
		Spent:               a.Spent,
		RecycledIn:          a.RecycledIn,
		RecycledOut:         a.RecycledOut,
		AllocatedIn:         a.AllocatedIn,
		AllocatedOut:        a.AllocatedOut,
		CommitmentsMade:     a.CommitmentsMade,
		CommitmentsRetired:  a.CommitmentsRetired,
		AdjustmentsIn:       a.AdjustmentsIn,
		AdjustmentsOut:      a.AdjustmentsOut,
		Available:           a.Available,
		LineItems:           a.LineItems,
		AdjustmentLineItems: a.AdjustmentLineItems,
	}
	w.Metadata.ObjectType = "Account"
	w.Metadata.Version = 1
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire format produced by MarshalJSON.
func (a *Account) UnmarshalJSON(data []byte) error {
	var w wireAccount
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Account{
		Type:                typeFromWireName(w.Type),
		BudgetIncreases:     orEmpty(w.BudgetIncreases),
		BudgetDecreases:     orEmpty(w.BudgetDecreases),
		Spent:               orEmpty(w.Spent),
		RecycledIn:          orEmpty(w.RecycledIn),
		RecycledOut:         orEmpty(w.RecycledOut),
		AllocatedIn:         orEmpty(w.AllocatedIn),
		AllocatedOut:        orEmpty(w.AllocatedOut),
		CommitmentsMade:     orEmpty(w.CommitmentsMade),
		CommitmentsRetired:  orEmpty(w.CommitmentsRetired),
		AdjustmentsIn:       orEmpty(w.AdjustmentsIn),
		AdjustmentsOut:      orEmpty(w.AdjustmentsOut),
		Available:           orEmpty(w.Available),
		LineItems:           orEmptyLineItems(w.LineItems),
		AdjustmentLineItems: orEmptyLineItems(w.AdjustmentLineItems),
	}
	return nil
}

func orEmpty(p money.CurrencyPool) money.CurrencyPool {
	if p == nil {
		return money.NewCurrencyPool()
	}
	return p
}

func orEmptyLineItems(l money.LineItems) money.LineItems {
	if l == nil {
		return money.NewLineItems()
	}
	return l
}
