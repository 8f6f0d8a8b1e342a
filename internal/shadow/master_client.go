package shadow

import (
	"context"

	"banker/internal/account"
)

// MasterClient is everything a shadow needs from the master to run the
// two-tier syncTo/syncFrom protocol. *ledger.Accounts implements it
// directly for in-process use (tests, the master's own admin tooling);
// *rpc.Client implements it for cross-process bidders. Shadow logic
// never depends on how the master is reached.
type MasterClient interface {
	// GetAccount returns the master's current snapshot of key, used by
	// syncFrom.
	GetAccount(ctx context.Context, key account.Key) (*account.Account, error)

	// ApplyDelta submits a shadow's outstanding delta for key, used by
	// syncTo. shadowID and seq implement the sequence protocol: the
	// master rejects a seq that doesn't match its expectation for
	// (key, shadowID) with a *bankerrors.StaleSync error, and returns
	// the sequence to use on the next call otherwise. It returns the
	// master's resulting full account snapshot so the shadow can adopt
	// it as its new synced baseline without a second round trip.
	ApplyDelta(ctx context.Context, key account.Key, shadowID string, seq int64, delta Delta) (result *account.Account, newSeq int64, err error)
}
