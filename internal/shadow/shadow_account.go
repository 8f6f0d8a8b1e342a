package shadow

import (
	"context"

	"banker/internal/account"
	"banker/internal/bankerrors"
	"banker/internal/money"
)

// ShadowAccount is a single bidder's local cache of one master account.
// It lets a bidding process authorize, cancel, and commit bids against
// its own copy of the account's balance at wire speed, without a round
// trip to the master on the hot path.
//
// A ShadowAccount is not safe for concurrent use: each shadow has
// thread affinity by design, so it carries no internal lock. Its owner
// serializes access, typically by never sharing it across goroutines.
type ShadowAccount struct {
	key      account.Key
	shadowID string

	// synced is the last full snapshot adopted from the master,
	// either from SyncFrom or as the ApplyDelta response to SyncTo.
	// It is the baseline computeDelta diffs current against.
	synced *account.Account

	// current is this shadow's working copy: synced plus every local
	// authorize/cancel/commit since the last sync.
	current *account.Account

	bids map[string]*bidRecord

	// clientSeq is the sequence number this shadow will send on its
	// next SyncTo call.
	clientSeq int64
}

// NewShadowAccount creates a shadow for key, seeded from initial (the
// account's state as last known, typically fetched with GetAccount).
func NewShadowAccount(shadowID string, key account.Key, initial *account.Account) *ShadowAccount {
	return &ShadowAccount{
		key:      key,
		shadowID: shadowID,
		synced:   initial.Clone(),
		current:  initial.Clone(),
		bids:     make(map[string]*bidRecord),
	}
}

// Key returns the account key this shadow tracks.
func (s *ShadowAccount) Key() account.Key { return s.key }

// Available returns the shadow's current view of available funds,
// reflecting every local authorize/cancel/commit not yet synced.
func (s *ShadowAccount) Available() money.CurrencyPool {
	return s.current.Available.Clone()
}

// AuthorizeBid reserves amount against the account for bidID, moving
// it from available into commitmentsMade. It fails with
// InsufficientFunds if the account cannot cover it, or DuplicateBid if
// bidID is already tracked.
func (s *ShadowAccount) AuthorizeBid(bidID string, amount money.Amount) error {
	if _, exists := s.bids[bidID]; exists {
		return &bankerrors.DuplicateBid{Account: s.key.String(), BidID: bidID}
	}
	cur := amount.Currency
	if s.current.Available.Get(cur) < amount.Units {
		return &bankerrors.InsufficientFunds{
			Account:   s.key.String(),
			Currency:  cur,
			Requested: amount.Units,
			Available: s.current.Available.Get(cur),
		}
	}
	s.current.Available.SubUnits(cur, amount.Units)
	s.current.CommitmentsMade.AddUnits(cur, amount.Units)
	s.bids[bidID] = &bidRecord{ID: bidID, Authorized: amount, State: BidAuthorized}
	return nil
}

func (s *ShadowAccount) requireAuthorized(bidID string) (*bidRecord, error) {
	b, ok := s.bids[bidID]
	if !ok {
		return nil, &bankerrors.UnknownBid{Account: s.key.String(), BidID: bidID}
	}
	if b.State != BidAuthorized {
		return nil, &bankerrors.WrongBidState{Account: s.key.String(), BidID: bidID, State: b.State.String()}
	}
	return b, nil
}

// CancelBid releases bidID's full reservation back to available
// without recording any spend. commitmentsMade is left untouched: it is
// a permanent record of the amount ever authorized, and commitmentsRetired
// grows by the same amount to balance it, exactly as spec'd.
func (s *ShadowAccount) CancelBid(bidID string) error {
	b, err := s.requireAuthorized(bidID)
	if err != nil {
		return err
	}
	cur := b.Authorized.Currency
	s.current.CommitmentsRetired.AddUnits(cur, b.Authorized.Units)
	s.current.Available.AddUnits(cur, b.Authorized.Units)
	b.State = BidCancelled
	delete(s.bids, bidID)
	return nil
}

// CommitBid retires bidID's reservation, recording spent as real
// spend and crediting any unspent remainder back to available.
// It fails with SpentExceedsAuthorized if spent exceeds the amount
// originally authorized.
func (s *ShadowAccount) CommitBid(bidID string, spent money.Amount, lineItems money.LineItems) error {
	b, err := s.requireAuthorized(bidID)
	if err != nil {
		return err
	}
	cur := b.Authorized.Currency
	if spent.Units > b.Authorized.Units {
		return &bankerrors.SpentExceedsAuthorized{
			Account:    s.key.String(),
			BidID:      bidID,
			Authorized: b.Authorized.Units,
			Spent:      spent.Units,
		}
	}
	s.commitLocked(cur, b.Authorized.Units, spent.Units, lineItems)
	b.State = BidCommitted
	delete(s.bids, bidID)
	return nil
}

// commitLocked retires authorized against commitmentsRetired (leaving
// commitmentsMade's permanent record untouched, mirroring CancelBid),
// records spent, and credits any remainder back to available.
func (s *ShadowAccount) commitLocked(cur string, authorized, spent int64, lineItems money.LineItems) {
	s.current.CommitmentsRetired.AddUnits(cur, authorized)
	s.current.Spent.AddUnits(cur, spent)
	if remainder := authorized - spent; remainder > 0 {
		s.current.Available.AddUnits(cur, remainder)
	}
	if lineItems != nil {
		s.current.LineItems.Merge(lineItems)
	}
}

// DetachBid removes bidID from this shadow's custody and returns a
// portable record another ShadowAccount can later resolve with
// CommitDetachedBid. The reservation stays charged against this
// account's commitmentsMade: nothing here or in CommitDetachedBid ever
// adds it to this account's commitmentsRetired.
func (s *ShadowAccount) DetachBid(bidID string) (DetachedBid, error) {
	b, err := s.requireAuthorized(bidID)
	if err != nil {
		return DetachedBid{}, err
	}
	b.State = BidDetached
	delete(s.bids, bidID)
	return DetachedBid{BidID: b.ID, Authorized: b.Authorized}, nil
}

// CommitDetachedBid resolves a bid detached from (possibly) a
// different ShadowAccount against this account. Per spec, the incoming
// reservation is booked as allocatedIn (funds arriving from the other
// shadow's commitmentsMade) rather than round-tripped through this
// account's own commitmentsMade/commitmentsRetired, since this account
// never authorized the bid itself; spent is then recorded and any
// remainder credited back to available, so allocatedIn alone balances
// spent+available and this account's own invariant closes without
// reference to the source account (see DESIGN.md Open Question 4).
func (s *ShadowAccount) CommitDetachedBid(detached DetachedBid, spent money.Amount, lineItems money.LineItems) error {
	if spent.Units > detached.Authorized.Units {
		return &bankerrors.SpentExceedsAuthorized{
			Account:    s.key.String(),
			BidID:      detached.BidID,
			Authorized: detached.Authorized.Units,
			Spent:      spent.Units,
		}
	}
	cur := detached.Authorized.Currency
	amount := detached.Authorized.Units
	s.current.AllocatedIn.AddUnits(cur, amount)
	s.current.Spent.AddUnits(cur, spent.Units)
	if remainder := amount - spent.Units; remainder > 0 {
		s.current.Available.AddUnits(cur, remainder)
	}
	if lineItems != nil {
		s.current.LineItems.Merge(lineItems)
	}
	return nil
}

// SyncFrom adopts the master's current snapshot as this shadow's new
// synced baseline, taking the componentwise maximum of the master's
// reported balances and this shadow's own last-synced baseline in
// every monotonic field so that a stale read from the master never
// rolls a field backwards. Any local activity not yet sent to the
// master (current - synced) is not part of that baseline: it is
// reapplied on top of the new baseline so a SyncFrom run between two
// SyncTo calls can never lose or double-ship a pending delta.
func (s *ShadowAccount) SyncFrom(ctx context.Context, master MasterClient) error {
	remote, err := master.GetAccount(ctx, s.key)
	if err != nil {
		return err
	}
	pending := computeDelta(s.current, s.synced)

	newSynced := account.New(remote.Type)
	newSynced.BudgetIncreases = componentwiseMax(remote.BudgetIncreases, s.synced.BudgetIncreases)
	newSynced.BudgetDecreases = componentwiseMax(remote.BudgetDecreases, s.synced.BudgetDecreases)
	newSynced.RecycledIn = componentwiseMax(remote.RecycledIn, s.synced.RecycledIn)
	newSynced.RecycledOut = componentwiseMax(remote.RecycledOut, s.synced.RecycledOut)
	newSynced.AllocatedIn = componentwiseMax(remote.AllocatedIn, s.synced.AllocatedIn)
	newSynced.AllocatedOut = componentwiseMax(remote.AllocatedOut, s.synced.AllocatedOut)
	newSynced.CommitmentsMade = componentwiseMax(remote.CommitmentsMade, s.synced.CommitmentsMade)
	newSynced.CommitmentsRetired = componentwiseMax(remote.CommitmentsRetired, s.synced.CommitmentsRetired)
	newSynced.AdjustmentsIn = componentwiseMax(remote.AdjustmentsIn, s.synced.AdjustmentsIn)
	newSynced.AdjustmentsOut = componentwiseMax(remote.AdjustmentsOut, s.synced.AdjustmentsOut)
	newSynced.Spent = componentwiseMax(remote.Spent, s.synced.Spent)
	newSynced.LineItems = remote.LineItems.Clone()
	newSynced.AdjustmentLineItems = remote.AdjustmentLineItems.Clone()
	recomputeAvailable(newSynced)

	newCurrent := newSynced.Clone()
	ApplyToAccount(newCurrent, pending)

	s.synced = newSynced
	s.current = newCurrent
	return nil
}

// SyncTo submits this shadow's outstanding local delta to the master
// and adopts the result as its new baseline. It is a no-op if there is
// nothing to submit. A StaleSync error means another submission from
// this shadow ID has already landed at the master with the sequence
// this shadow expected; the caller should SyncFrom to recover before
// retrying.
func (s *ShadowAccount) SyncTo(ctx context.Context, master MasterClient) error {
	delta := computeDelta(s.current, s.synced)
	if delta.IsZero() {
		return nil
	}
	result, newSeq, err := master.ApplyDelta(ctx, s.key, s.shadowID, s.clientSeq, delta)
	if err != nil {
		return err
	}
	s.clientSeq = newSeq
	s.synced = result.Clone()
	s.current = result.Clone()
	return nil
}

// Sync runs SyncTo followed by SyncFrom, the two-tier round trip for a
// shadow that wants to both publish its own activity and pick up any
// changes made elsewhere.
func (s *ShadowAccount) Sync(ctx context.Context, master MasterClient) error {
	if err := s.SyncTo(ctx, master); err != nil {
		return err
	}
	return s.SyncFrom(ctx, master)
}

// CheckInvariants verifies the shadow's current working copy still
// satisfies the closed balance equation.
func (s *ShadowAccount) CheckInvariants() error {
	return s.current.CheckInvariants(s.key.String())
}
