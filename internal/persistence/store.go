// Package persistence saves and restores the master's whole Accounts
// tree so it survives a restart with its state intact. It picks the
// simplest mechanism that satisfies that: a periodic whole-tree
// snapshot stamped with a snapshot sequence number, rather than an
// event log to replay.
package persistence

import (
	"context"

	"banker/internal/account"
)

// AccountRecord is one account's persisted state, paired with its key
// so a flat table can hold the whole tree.
type AccountRecord struct {
	Key     string
	Account *account.Account
}

// Store persists and restores the master's Accounts tree.
type Store interface {
	// SaveAccounts overwrites the persisted tree with records,
	// stamped with seq, a snapshot number chosen by the caller
	// (cmd/banker counts its own saves).
	SaveAccounts(ctx context.Context, seq int64, records []AccountRecord) error

	// LoadAccounts returns the most recently saved tree and the
	// sequence it was saved at, or a zero seq and no records if
	// nothing has ever been saved.
	LoadAccounts(ctx context.Context) (seq int64, records []AccountRecord, err error)

	// Close releases the store's underlying connection.
	Close() error
}
