// Package ledger implements Accounts, the shared master tree of budget
// and spend accounts. All mutations run under a single coarse
// sync.RWMutex rather than per-subtree locking (see DESIGN.md's Open
// Question decisions).
package ledger

import (
	"context"
	"sync"

	"banker/internal/account"
	"banker/internal/bankerrors"
	"banker/internal/money"
	"banker/internal/observability"
	"banker/internal/shadow"

	"github.com/rs/zerolog"
)

// MutationObserver is notified after every accepted mutation, so
// cross-cutting concerns (metrics, NATS broadcast, audit publishing)
// can hook in without Accounts depending on any of them directly.
type MutationObserver interface {
	AccountMutated(key string, op string, before, after *account.Account)
}

// Accounts is the master's authoritative view of the whole budget
// tree, keyed by the colon-joined form of account.Key.
type Accounts struct {
	mu   sync.RWMutex
	tree map[string]*account.Account
	seq  *sequenceTracker

	logger    zerolog.Logger
	observers []MutationObserver
	metrics   *observability.Metrics
}

// New returns an empty Accounts tree.
func New(logger zerolog.Logger) *Accounts {
	return &Accounts{
		tree:   make(map[string]*account.Account),
		seq:    newSequenceTracker(),
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

// AddObserver registers o to be notified of future mutations.
func (a *Accounts) AddObserver(o MutationObserver) {
	a.observers = append(a.observers, o)
}

// SetMetrics attaches m so future mutations are recorded against it.
// Left unset, Accounts runs with no metrics overhead, which is what
// every existing test constructs via New(logger) alone.
func (a *Accounts) SetMetrics(m *observability.Metrics) {
	a.metrics = m
}

func (a *Accounts) notify(key account.Key, op string, before, after *account.Account) {
	if len(a.observers) == 0 {
		return
	}
	for _, o := range a.observers {
		o.AccountMutated(key.String(), op, before, after)
	}
}

// CreateBudgetAccount creates key, and any missing ancestor, as Budget
// accounts.
func (a *Accounts) CreateBudgetAccount(key account.Key) error {
	return a.createAccount(key, account.TypeBudget)
}

// CreateSpendAccount creates key as a Spend account, creating any
// missing ancestor as a Budget account.
func (a *Accounts) CreateSpendAccount(key account.Key) error {
	return a.createAccount(key, account.TypeSpend)
}

func (a *Accounts) createAccount(key account.Key, t account.Type) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, ancestor := range key.Ancestors() {
		ak := ancestor.String()
		if existing, ok := a.tree[ak]; !ok {
			a.tree[ak] = account.New(account.TypeBudget)
			if a.metrics != nil {
				a.metrics.AccountsCreated.WithLabelValues(account.TypeBudget.String()).Inc()
				a.metrics.AccountCount.Set(float64(len(a.tree)))
			}
		} else if existing.Type != account.TypeBudget {
			return &bankerrors.AccountExists{Key: ak, ExistingType: existing.Type.String(), RequestType: account.TypeBudget.String()}
		}
	}

	k := key.String()
	if existing, ok := a.tree[k]; ok {
		if existing.Type != t {
			return &bankerrors.AccountExists{Key: k, ExistingType: existing.Type.String(), RequestType: t.String()}
		}
		return nil
	}
	a.tree[k] = account.New(t)
	a.logger.Debug().Str("key", k).Str("type", t.String()).Msg("account created")
	if a.metrics != nil {
		a.metrics.AccountsCreated.WithLabelValues(t.String()).Inc()
		a.metrics.AccountCount.Set(float64(len(a.tree)))
	}
	return nil
}

// lookup returns the account at key, holding a.mu already.
func (a *Accounts) lookup(key account.Key) (*account.Account, error) {
	acc, ok := a.tree[key.String()]
	if !ok {
		return nil, &bankerrors.AccountMissing{Key: key.String()}
	}
	return acc, nil
}

// SetBudget sets a root account's net budget. It is only legal at a
// length-1 key; nested Budget accounts receive budget through
// SetAvailable instead.
func (a *Accounts) SetBudget(key account.Key, target money.Amount) error {
	if !key.IsRoot() {
		return &bankerrors.RootOnlyOperation{Key: key.String(), Op: "setBudget"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	acc, err := a.lookup(key)
	if err != nil {
		a.recordSetBudget("rejected")
		return err
	}
	before := acc.Clone()
	if err := acc.SetBudget(key.String(), target); err != nil {
		a.recordSetBudget("rejected")
		return err
	}
	a.recordSetBudget("accepted")
	a.notify(key, "setBudget", before, acc)
	return nil
}

func (a *Accounts) recordSetBudget(result string) {
	if a.metrics != nil {
		a.metrics.SetBudgetTotal.WithLabelValues(result).Inc()
	}
}

// SetAvailable moves funds down the tree so that the account at key
// has target available. If the immediate parent cannot cover an
// increase outright, mode controls whether siblings are recuperated
// first.
func (a *Accounts) SetAvailable(key account.Key, target money.Amount, mode RecycleMode) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, err := a.lookup(key)
	if err != nil {
		return err
	}
	parentKey, ok := key.Parent()
	if !ok {
		return &bankerrors.RootOnlyOperation{Key: key.String(), Op: "setAvailable (root has no parent)"}
	}
	parent, err := a.lookup(parentKey)
	if err != nil {
		return err
	}

	before := acc.Clone()
	err = acc.SetAvailable(key.String(), parent, target)
	if _, insufficient := err.(*bankerrors.InsufficientFunds); insufficient && mode != AtNone {
		a.recuperateChildren(parentKey, key, mode)
		err = acc.SetAvailable(key.String(), parent, target)
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.SetAvailableTotal.WithLabelValues("rejected", mode.String()).Inc()
		}
		return err
	}
	if a.metrics != nil {
		a.metrics.SetAvailableTotal.WithLabelValues("accepted", mode.String()).Inc()
	}
	a.notify(key, "setAvailable", before, acc)
	return nil
}

// recuperateChildren sweeps parent's other children's available funds
// back to parent, in preparation for retrying an increase. Under
// AtBudget only Budget-type siblings are swept; under AtSpend every
// sibling is. except is excluded (it is the account requesting more
// funds, and has nothing useful to recuperate to itself).
func (a *Accounts) recuperateChildren(parentKey, except account.Key, mode RecycleMode) {
	parent := a.tree[parentKey.String()]
	if parent == nil {
		return
	}
	for k, child := range a.tree {
		ck := account.ParseKey(k)
		if !parentKey.IsAncestorOf(ck) || len(ck) != len(parentKey)+1 {
			continue
		}
		if ck.Equal(except) {
			continue
		}
		if mode == AtBudget && child.Type != account.TypeBudget {
			continue
		}
		child.RecuperateTo(parent)
	}
}

// Recuperate sweeps key's available funds back to its parent.
func (a *Accounts) Recuperate(key account.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, err := a.lookup(key)
	if err != nil {
		a.recordRecuperate("rejected")
		return err
	}
	parentKey, ok := key.Parent()
	if !ok {
		a.recordRecuperate("rejected")
		return &bankerrors.RootOnlyOperation{Key: key.String(), Op: "recuperate (root has no parent)"}
	}
	parent, err := a.lookup(parentKey)
	if err != nil {
		a.recordRecuperate("rejected")
		return err
	}
	before := acc.Clone()
	acc.RecuperateTo(parent)
	a.recordRecuperate("accepted")
	a.notify(key, "recuperate", before, acc)
	return nil
}

func (a *Accounts) recordRecuperate(result string) {
	if a.metrics != nil {
		a.metrics.RecuperateTotal.WithLabelValues(result).Inc()
	}
}

// GetAvailable returns key's current available balance.
func (a *Accounts) GetAvailable(key account.Key) (money.CurrencyPool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acc, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	return acc.Available.Clone(), nil
}

// GetAccount returns a snapshot of the account at key. The returned
// value is a clone; mutating it has no effect on the master.
func (a *Accounts) GetAccount(ctx context.Context, key account.Key) (*account.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acc, err := a.lookup(key)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

// GetAccountSummary aggregates key and every account beneath it in the
// tree.
func (a *Accounts) GetAccountSummary(key account.Key) (*AccountSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, err := a.lookup(key); err != nil {
		return nil, err
	}

	summary := newSummary(key.String())
	for k, acc := range a.tree {
		ck := account.ParseKey(k)
		if !ck.Equal(key) && !key.IsAncestorOf(ck) {
			continue
		}
		if ck.Equal(key) {
			summary.Budget = summary.Budget.Add(acc.BudgetIncreases.Sub(acc.BudgetDecreases))
		}
		summary.Spent = summary.Spent.Add(acc.Spent)
		summary.Available = summary.Available.Add(acc.Available)
		inFlight := acc.CommitmentsMade.Sub(acc.CommitmentsRetired)
		summary.InFlight = summary.InFlight.Add(inFlight)
	}
	return summary, nil
}

// CheckInvariants verifies every account's own closed balance equation
// and, additionally, that every parent's allocatedOut matches the sum
// of its direct children's allocatedIn — the tree-structure invariant
// that individual per-account checks alone cannot see.
func (a *Accounts) CheckInvariants() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for k, acc := range a.tree {
		if err := acc.CheckInvariants(k); err != nil {
			if viol, ok := err.(*bankerrors.InvariantViolation); ok && a.metrics != nil {
				a.metrics.InvariantViolations.WithLabelValues(viol.Field).Inc()
			}
			return err
		}
	}

	childAllocatedIn := make(map[string]money.CurrencyPool)
	for k := range a.tree {
		ck := account.ParseKey(k)
		parentKey, ok := ck.Parent()
		if !ok {
			continue
		}
		pk := parentKey.String()
		if childAllocatedIn[pk] == nil {
			childAllocatedIn[pk] = money.NewCurrencyPool()
		}
		childAllocatedIn[pk] = childAllocatedIn[pk].Add(a.tree[k].AllocatedIn)
	}
	for pk, sumIn := range childAllocatedIn {
		parent, ok := a.tree[pk]
		if !ok {
			continue
		}
		for _, cur := range sumIn.Currencies() {
			if sumIn.Get(cur) != parent.AllocatedOut.Get(cur) {
				if a.metrics != nil {
					a.metrics.InvariantViolations.WithLabelValues("allocatedOut").Inc()
				}
				return &bankerrors.InvariantViolation{
					Account: pk,
					Field:   "allocatedOut",
					Detail:  cur + ": does not match sum of children's allocatedIn",
				}
			}
		}
	}
	return nil
}

// ApplyDelta implements shadow.MasterClient: it validates the caller's
// sequence number, folds the delta into the master account, and
// returns the resulting snapshot.
func (a *Accounts) ApplyDelta(ctx context.Context, key account.Key, shadowID string, clientSeq int64, delta shadow.Delta) (*account.Account, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, err := a.lookup(key)
	if err != nil {
		if a.metrics != nil {
			a.metrics.SyncToTotal.WithLabelValues("rejected").Inc()
		}
		return nil, 0, err
	}

	partition := key.String() + "|" + shadowID
	newSeq, ok := a.seq.checkAndAdvance(partition, clientSeq)
	if !ok {
		if a.metrics != nil {
			a.metrics.SyncToTotal.WithLabelValues("rejected").Inc()
			a.metrics.SyncToRejected.WithLabelValues(shadowID).Inc()
		}
		return nil, 0, &bankerrors.StaleSync{
			Account:   key.String(),
			ShadowID:  shadowID,
			MasterSeq: newSeq,
			ClientSeq: clientSeq,
		}
	}

	before := acc.Clone()
	shadow.ApplyToAccount(acc, delta)
	if a.metrics != nil {
		a.metrics.SyncToTotal.WithLabelValues("accepted").Inc()
	}
	a.notify(key, "syncTo", before, acc)
	return acc.Clone(), newSeq, nil
}

// RestoreAccount inserts acc at key directly, bypassing the
// ancestor-creation and type-checking createAccount otherwise applies.
// It exists solely for loading a persisted snapshot at startup, where
// every record's closed balance state is already internally
// consistent and ancestors are restored in the same pass.
func (a *Accounts) RestoreAccount(key account.Key, acc *account.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tree[key.String()] = acc
	if a.metrics != nil {
		a.metrics.AccountCount.Set(float64(len(a.tree)))
	}
}

// Keys returns every account key currently in the tree, in
// deterministic sorted order.
func (a *Accounts) Keys() []account.Key {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]account.Key, 0, len(a.tree))
	for k := range a.tree {
		out = append(out, account.ParseKey(k))
	}
	sortKeys(out)
	return out
}

func sortKeys(keys []account.Key) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].Less(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}
