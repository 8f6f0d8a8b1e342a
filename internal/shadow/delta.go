package shadow

import (
	"banker/internal/account"
	"banker/internal/money"
)

// Delta is the field-wise growth of an account's monotonic balance
// fields between two snapshots. available is deliberately excluded: it
// is always recomputed from the closed balance equation rather than
// merged, since a shadow's private
// authorize/cancel/commit activity is exactly what makes its available
// diverge from the last-synced snapshot without that divergence being
// safe to add onto the master's own, independently-changing available.
type Delta struct {
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

	Spent money.CurrencyPool

	LineItems           money.LineItems
	AdjustmentLineItems money.LineItems
}

// computeDelta returns current - synced, field by field. Every field
// is expected to be monotonically non-decreasing between snapshots, so
// every resulting pool is non-negative in a correctly operating
// system; a negative entry indicates the caller compared snapshots out
// of order.
func computeDelta(current, synced *account.Account) Delta {
	return Delta{
		BudgetIncreases:     current.BudgetIncreases.Sub(synced.BudgetIncreases),
		BudgetDecreases:     current.BudgetDecreases.Sub(synced.BudgetDecreases),
		RecycledIn:          current.RecycledIn.Sub(synced.RecycledIn),
		RecycledOut:         current.RecycledOut.Sub(synced.RecycledOut),
		AllocatedIn:         current.AllocatedIn.Sub(synced.AllocatedIn),
		AllocatedOut:        current.AllocatedOut.Sub(synced.AllocatedOut),
		CommitmentsMade:     current.CommitmentsMade.Sub(synced.CommitmentsMade),
		CommitmentsRetired:  current.CommitmentsRetired.Sub(synced.CommitmentsRetired),
		AdjustmentsIn:       current.AdjustmentsIn.Sub(synced.AdjustmentsIn),
		AdjustmentsOut:      current.AdjustmentsOut.Sub(synced.AdjustmentsOut),
		Spent:               current.Spent.Sub(synced.Spent),
		LineItems:           diffLineItems(current.LineItems, synced.LineItems),
		AdjustmentLineItems: diffLineItems(current.AdjustmentLineItems, synced.AdjustmentLineItems),
	}
}

func diffLineItems(current, synced money.LineItems) money.LineItems {
	out := money.NewLineItems()
	for label, pool := range current {
		out[label] = pool.Sub(synced[label])
	}
	return out
}

// IsZero reports whether the delta carries no change at all, in which
// case a sync round trip can be skipped.
func (d Delta) IsZero() bool {
	pools := []money.CurrencyPool{
		d.BudgetIncreases, d.BudgetDecreases,
		d.RecycledIn, d.RecycledOut,
		d.AllocatedIn, d.AllocatedOut,
		d.CommitmentsMade, d.CommitmentsRetired,
		d.AdjustmentsIn, d.AdjustmentsOut,
		d.Spent,
	}
	for _, p := range pools {
		if !p.IsZero() {
			return false
		}
	}
	return true
}

// ApplyToAccount adds every field of d onto a in place and recomputes
// a.Available from the closed balance equation, since available is
// never part of a merged delta directly (see Delta's doc comment).
// This is the operation the master performs when it accepts a
// shadow's syncTo, and it is also how ShadowAccount reconstructs its
// own current state after adopting a fresh snapshot from the master.
func ApplyToAccount(a *account.Account, d Delta) {
	a.BudgetIncreases = a.BudgetIncreases.Add(d.BudgetIncreases)
	a.BudgetDecreases = a.BudgetDecreases.Add(d.BudgetDecreases)
	a.RecycledIn = a.RecycledIn.Add(d.RecycledIn)
	a.RecycledOut = a.RecycledOut.Add(d.RecycledOut)
	a.AllocatedIn = a.AllocatedIn.Add(d.AllocatedIn)
	a.AllocatedOut = a.AllocatedOut.Add(d.AllocatedOut)
	a.CommitmentsMade = a.CommitmentsMade.Add(d.CommitmentsMade)
	a.CommitmentsRetired = a.CommitmentsRetired.Add(d.CommitmentsRetired)
	a.AdjustmentsIn = a.AdjustmentsIn.Add(d.AdjustmentsIn)
	a.AdjustmentsOut = a.AdjustmentsOut.Add(d.AdjustmentsOut)
	a.Spent = a.Spent.Add(d.Spent)
	a.LineItems.Merge(d.LineItems)
	a.AdjustmentLineItems.Merge(d.AdjustmentLineItems)
	recomputeAvailable(a)
}

// recomputeAvailable derives available from the closed balance
// equation rather than merging it.
func recomputeAvailable(a *account.Account) {
	currencies := make(map[string]struct{})
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
			currencies[cur] = struct{}{}
		}
	}
	for cur := range currencies {
		in := a.BudgetIncreases.Get(cur) + a.RecycledIn.Get(cur) + a.AllocatedIn.Get(cur) +
			a.CommitmentsRetired.Get(cur) + a.AdjustmentsIn.Get(cur)
		out := a.BudgetDecreases.Get(cur) + a.RecycledOut.Get(cur) + a.AllocatedOut.Get(cur) +
			a.CommitmentsMade.Get(cur) + a.AdjustmentsOut.Get(cur) + a.Spent.Get(cur)
		a.Available[cur] = in - out
	}
}

// componentwiseMax returns, for every currency present in any of the
// pools, the largest of their values. Used by ShadowAccount.SyncFrom to
// take the maximum of the master's reported snapshot and the shadow's
// last-synced baseline in each field, so a stale read from the master
// never rolls a field backwards.
func componentwiseMax(pools ...money.CurrencyPool) money.CurrencyPool {
	out := money.NewCurrencyPool()
	for _, p := range pools {
		for cur, v := range p {
			if v > out.Get(cur) {
				out[cur] = v
			}
		}
	}
	return out
}
