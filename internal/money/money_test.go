package money_test

import (
	"encoding/json"
	"testing"

	"banker/internal/money"
)

func TestCurrencyPoolAddSub(t *testing.T) {
	p := money.NewCurrencyPool()
	p.AddAmount(money.USD(10))
	p.AddAmount(money.Amount{Currency: "EUR", Units: 500})

	if got := p.Get("USD"); got != 10_000_000 {
		t.Errorf("USD balance = %d, want 10000000", got)
	}
	if got := p.Get("EUR"); got != 500 {
		t.Errorf("EUR balance = %d, want 500", got)
	}

	p.SubUnits("USD", 4_000_000)
	if got := p.Get("USD"); got != 6_000_000 {
		t.Errorf("USD balance after sub = %d, want 6000000", got)
	}
}

func TestCurrencyPoolLessEq(t *testing.T) {
	available := money.CurrencyPool{"USD": 5_000_000}
	requested := money.CurrencyPool{"USD": 3_000_000}

	if !requested.LessEq(available) {
		t.Errorf("requested <= available should hold")
	}
	if available.LessEq(requested) {
		t.Errorf("available <= requested should not hold")
	}

	// A currency absent from the left operand is treated as zero.
	empty := money.NewCurrencyPool()
	if !empty.LessEq(available) {
		t.Errorf("empty pool should be <= any non-negative pool")
	}
}

func TestCurrencyPoolJSONRoundTrip(t *testing.T) {
	p := money.CurrencyPool{"USD": 1_500_000, "EUR": 0}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]int64
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, present := wire["EUR/1M"]; present {
		t.Errorf("zero-valued currency EUR should be omitted from wire form")
	}
	if wire["USD/1M"] != 1_500_000 {
		t.Errorf("USD/1M = %d, want 1500000", wire["USD/1M"])
	}

	var back money.CurrencyPool
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Get("USD") != 1_500_000 {
		t.Errorf("round-tripped USD = %d, want 1500000", back.Get("USD"))
	}
}

func TestLineItemsMerge(t *testing.T) {
	a := money.NewLineItems()
	a.Add("creative-1", money.USD(2))

	b := money.NewLineItems()
	b.Add("creative-1", money.USD(3))
	b.Add("creative-2", money.USD(1))

	a.Merge(b)

	if got := a["creative-1"].Get("USD"); got != 5_000_000 {
		t.Errorf("creative-1 total = %d, want 5000000", got)
	}
	if got := a["creative-2"].Get("USD"); got != 1_000_000 {
		t.Errorf("creative-2 total = %d, want 1000000", got)
	}
}
