// Package money implements exact-integer currency arithmetic for the
// banker. Every value is an integer count of a currency's smallest unit
// (e.g. micro-dollars); there is no floating point anywhere in this
// package by design.
package money

import (
	"fmt"
	"strings"
)

// Amount is a single quantity of a single currency, denominated in the
// currency's smallest unit.
type Amount struct {
	Currency string
	Units    int64
}

// USD builds an Amount from a whole-dollar count, scaled to
// micro-dollars. It exists mainly for tests and CLI tooling that want
// to talk in human units.
func USD(dollars int64) Amount {
	return Amount{Currency: "USD", Units: dollars * 1_000_000}
}

// USDMicros builds a USD Amount directly from a micro-dollar count.
func USDMicros(micros int64) Amount {
	return Amount{Currency: "USD", Units: micros}
}

// Add returns a + b. Panics if the currencies differ; callers that
// might mix currencies should compare Currency themselves first.
func (a Amount) Add(b Amount) Amount {
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s vs %s", a.Currency, b.Currency))
	}
	return Amount{Currency: a.Currency, Units: a.Units + b.Units}
}

// Sub returns a - b. Panics on currency mismatch, see Add.
func (a Amount) Sub(b Amount) Amount {
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s vs %s", a.Currency, b.Currency))
	}
	return Amount{Currency: a.Currency, Units: a.Units - b.Units}
}

// IsZero reports whether the amount is exactly zero units.
func (a Amount) IsZero() bool { return a.Units == 0 }

// String renders "<CUR>:<units>", e.g. "USD:500000". It does not carry
// the "/1M" denomination suffix used by CurrencyPool's JSON encoding.
func (a Amount) String() string {
	return fmt.Sprintf("%s:%d", a.Currency, a.Units)
}

// wireKey is the JSON map key used for a currency: the currency code
// followed by the fixed "/1M" micro-unit denomination suffix, e.g.
// "USD/1M".
func wireKey(currency string) string {
	return currency + "/1M"
}

// currencyFromWireKey strips the "/1M" suffix, returning ok=false if
// the key isn't in the expected shape.
func currencyFromWireKey(key string) (string, bool) {
	const suffix = "/1M"
	if !strings.HasSuffix(key, suffix) {
		return "", false
	}
	return strings.TrimSuffix(key, suffix), true
}

