package money

import (
	"encoding/json"
	"sort"
)

// CurrencyPool holds an integer balance per currency. A nil or empty
// pool is a valid zero value: Get on a missing currency returns 0, and
// mutating methods create the entry on first use.
type CurrencyPool map[string]int64

// NewCurrencyPool returns an empty, non-nil pool.
func NewCurrencyPool() CurrencyPool {
	return make(CurrencyPool)
}

// Get returns the balance for currency, or 0 if absent.
func (p CurrencyPool) Get(currency string) int64 {
	if p == nil {
		return 0
	}
	return p[currency]
}

// AddUnits adds delta units of currency in place. Panics if p is nil;
// callers must construct pools with NewCurrencyPool or a composite
// literal before mutating.
func (p CurrencyPool) AddUnits(currency string, delta int64) {
	p[currency] += delta
}

// SubUnits subtracts delta units of currency in place.
func (p CurrencyPool) SubUnits(currency string, delta int64) {
	p[currency] -= delta
}

// AddAmount adds a to the pool.
func (p CurrencyPool) AddAmount(a Amount) {
	p.AddUnits(a.Currency, a.Units)
}

// SubAmount subtracts a from the pool.
func (p CurrencyPool) SubAmount(a Amount) {
	p.SubUnits(a.Currency, a.Units)
}

// Clone returns an independent copy.
func (p CurrencyPool) Clone() CurrencyPool {
	out := make(CurrencyPool, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Add returns a new pool holding p + other, currency by currency.
func (p CurrencyPool) Add(other CurrencyPool) CurrencyPool {
	out := p.Clone()
	for cur, v := range other {
		out[cur] += v
	}
	return out
}

// Sub returns a new pool holding p - other, currency by currency.
func (p CurrencyPool) Sub(other CurrencyPool) CurrencyPool {
	out := p.Clone()
	for cur, v := range other {
		out[cur] -= v
	}
	return out
}

// IsZero reports whether every currency in the pool is exactly zero.
func (p CurrencyPool) IsZero() bool {
	for _, v := range p {
		if v != 0 {
			return false
		}
	}
	return true
}

// Currencies returns the pool's currency codes in sorted order, for
// deterministic iteration (invariant checks, JSON encoding).
func (p CurrencyPool) Currencies() []string {
	out := make([]string, 0, len(p))
	for cur := range p {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

// LessEq reports whether p <= other. The comparison holds iff it holds
// in every currency present in other; currencies present only in p are
// ignored, and currencies missing from p are treated as zero. This
// asymmetric definition fits checking that a requested amount is
// covered by an available pool.
func (p CurrencyPool) LessEq(other CurrencyPool) bool {
	for cur, want := range other {
		if p.Get(cur) > want {
			return false
		}
	}
	return true
}

// nonZero returns a copy with zero-valued entries dropped, since the
// wire format omits currencies with a zero balance.
func (p CurrencyPool) nonZero() CurrencyPool {
	out := make(CurrencyPool)
	for cur, v := range p {
		if v != 0 {
			out[cur] = v
		}
	}
	return out
}

// MarshalJSON encodes the pool as {"<CUR>/1M": <units>, ...}, omitting
// zero balances.
func (p CurrencyPool) MarshalJSON() ([]byte, error) {
	wire := make(map[string]int64, len(p))
	for cur, v := range p.nonZero() {
		wire[wireKey(cur)] = v
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the {"<CUR>/1M": <units>} wire format.
func (p *CurrencyPool) UnmarshalJSON(data []byte) error {
	var wire map[string]int64
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(CurrencyPool, len(wire))
	for key, v := range wire {
		cur, ok := currencyFromWireKey(key)
		if !ok {
			cur = key
		}
		out[cur] = v
	}
	*p = out
	return nil
}
