package persistence

import (
	"context"
	"testing"

	"banker/internal/account"
	"banker/internal/money"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	campaign := account.New(account.TypeBudget)
	if err := campaign.SetBudget("campaign", money.USD(10)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	records := []AccountRecord{{Key: "campaign", Account: campaign}}

	ctx := context.Background()
	if err := store.SaveAccounts(ctx, 42, records); err != nil {
		t.Fatalf("SaveAccounts: %v", err)
	}

	seq, loaded, err := store.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	if seq != 42 {
		t.Fatalf("seq = %d, want 42", seq)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d records, want 1", len(loaded))
	}
	if got := loaded[0].Account.Available.Get("USD"); got != money.USD(10).Units {
		t.Fatalf("loaded available = %d, want %d", got, money.USD(10).Units)
	}
}

func TestSQLiteStoreSaveOverwrites(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := []AccountRecord{{Key: "a", Account: account.New(account.TypeBudget)}}
	if err := store.SaveAccounts(ctx, 1, first); err != nil {
		t.Fatalf("first SaveAccounts: %v", err)
	}
	second := []AccountRecord{{Key: "b", Account: account.New(account.TypeSpend)}}
	if err := store.SaveAccounts(ctx, 2, second); err != nil {
		t.Fatalf("second SaveAccounts: %v", err)
	}

	seq, loaded, err := store.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	if seq != 2 || len(loaded) != 1 || loaded[0].Key != "b" {
		t.Fatalf("LoadAccounts after overwrite = seq %d, records %v, want seq 2 and only key b", seq, loaded)
	}
}
