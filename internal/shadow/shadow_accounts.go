package shadow

import (
	"context"
	"sync"
	"time"

	"banker/internal/account"
	"banker/internal/bankerrors"
	"banker/internal/money"
	"banker/internal/observability"

	"golang.org/x/sync/errgroup"
)

// ShadowAccounts is one bidder process's whole local cache: a
// collection of ShadowAccount, one per account key the bidder has
// activated.
//
// Unlike ShadowAccount itself, ShadowAccounts is safe for concurrent
// use across accounts: each ShadowAccount still has thread affinity,
// but different keys may be driven by different goroutines
// simultaneously (e.g. one bid-authorizing goroutine per key, and a
// separate goroutine fanning out periodic syncs across all of them).
type ShadowAccounts struct {
	shadowID string
	master   MasterClient
	metrics  *observability.Metrics

	mu       sync.RWMutex
	accounts map[string]*ShadowAccount
}

// New returns an empty ShadowAccounts collection identified as
// shadowID to the master.
func New(shadowID string, master MasterClient) *ShadowAccounts {
	return &ShadowAccounts{
		shadowID: shadowID,
		master:   master,
		accounts: make(map[string]*ShadowAccount),
	}
}

// SetMetrics attaches m so future bid and sync activity is recorded
// against it. Left unset, ShadowAccounts runs with no metrics
// overhead.
func (s *ShadowAccounts) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// ActivateAccount fetches key's current state from the master and
// begins tracking it locally. Calling it again for an already-active
// key re-seeds the shadow from the master, discarding any unsynced
// local activity.
func (s *ShadowAccounts) ActivateAccount(ctx context.Context, key account.Key) error {
	remote, err := s.master.GetAccount(ctx, key)
	if err != nil {
		return err
	}
	sh := NewShadowAccount(s.shadowID, key, remote)

	s.mu.Lock()
	s.accounts[key.String()] = sh
	s.mu.Unlock()
	return nil
}

// get returns the active shadow for key, or UnknownBid-style
// AccountMissing if it has never been activated.
func (s *ShadowAccounts) get(key account.Key) (*ShadowAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.accounts[key.String()]
	if !ok {
		return nil, &bankerrors.AccountMissing{Key: key.String()}
	}
	return sh, nil
}

// AuthorizeBid authorizes a bid against the shadow for key.
func (s *ShadowAccounts) AuthorizeBid(key account.Key, bidID string, amount money.Amount) error {
	sh, err := s.get(key)
	if err != nil {
		return err
	}
	err = sh.AuthorizeBid(bidID, amount)
	if s.metrics != nil {
		if err != nil {
			s.metrics.BidsRejected.WithLabelValues(key.String()).Inc()
		} else {
			s.metrics.BidsAuthorized.WithLabelValues(key.String()).Inc()
		}
	}
	return err
}

// CancelBid cancels a bid on the shadow for key.
func (s *ShadowAccounts) CancelBid(key account.Key, bidID string) error {
	sh, err := s.get(key)
	if err != nil {
		return err
	}
	if err := sh.CancelBid(bidID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BidsCancelled.WithLabelValues(key.String()).Inc()
	}
	return nil
}

// CommitBid commits a bid on the shadow for key.
func (s *ShadowAccounts) CommitBid(key account.Key, bidID string, spent money.Amount, lineItems money.LineItems) error {
	sh, err := s.get(key)
	if err != nil {
		return err
	}
	if err := sh.CommitBid(bidID, spent, lineItems); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BidsCommitted.WithLabelValues(key.String(), "direct").Inc()
	}
	return nil
}

// DetachBid detaches a bid from the shadow for key.
func (s *ShadowAccounts) DetachBid(key account.Key, bidID string) (DetachedBid, error) {
	sh, err := s.get(key)
	if err != nil {
		return DetachedBid{}, err
	}
	detached, err := sh.DetachBid(bidID)
	if err != nil {
		return DetachedBid{}, err
	}
	if s.metrics != nil {
		s.metrics.BidsDetached.WithLabelValues(key.String()).Inc()
	}
	return detached, nil
}

// CommitDetachedBid resolves a detached bid against the shadow for
// destKey, which need not be the account the bid was originally
// authorized against.
func (s *ShadowAccounts) CommitDetachedBid(destKey account.Key, detached DetachedBid, spent money.Amount, lineItems money.LineItems) error {
	sh, err := s.get(destKey)
	if err != nil {
		return err
	}
	if err := sh.CommitDetachedBid(detached, spent, lineItems); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BidsCommitted.WithLabelValues(destKey.String(), "detached").Inc()
	}
	return nil
}

// Available returns the shadow for key's current available balance.
func (s *ShadowAccounts) Available(key account.Key) (money.CurrencyPool, error) {
	sh, err := s.get(key)
	if err != nil {
		return nil, err
	}
	return sh.Available(), nil
}

// activeShadows returns a snapshot slice of every currently active
// shadow, for fan-out operations.
func (s *ShadowAccounts) activeShadows() []*ShadowAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ShadowAccount, 0, len(s.accounts))
	for _, sh := range s.accounts {
		out = append(out, sh)
	}
	return out
}

// SyncFrom refreshes every active shadow from the master concurrently.
func (s *ShadowAccounts) SyncFrom(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sh := range s.activeShadows() {
		sh := sh
		g.Go(func() error {
			start := time.Now()
			err := sh.SyncFrom(ctx, s.master)
			s.recordSyncFrom(start, err)
			return err
		})
	}
	return g.Wait()
}

// SyncTo submits every active shadow's outstanding delta to the
// master concurrently.
func (s *ShadowAccounts) SyncTo(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sh := range s.activeShadows() {
		sh := sh
		g.Go(func() error {
			start := time.Now()
			err := sh.SyncTo(ctx, s.master)
			s.recordSyncTo(start, err)
			return err
		})
	}
	return g.Wait()
}

func (s *ShadowAccounts) recordSyncFrom(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.SyncFromTotal.WithLabelValues(result).Inc()
	s.metrics.SyncFromDuration.Observe(time.Since(start).Seconds())
}

func (s *ShadowAccounts) recordSyncTo(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncToDuration.Observe(time.Since(start).Seconds())
	if bankerrors.IsStaleSync(err) {
		s.metrics.SyncToRejected.WithLabelValues(s.shadowID).Inc()
	}
}

// Sync runs SyncTo then SyncFrom for every active shadow, sequenced
// per shadow but fanned out across shadows.
func (s *ShadowAccounts) Sync(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sh := range s.activeShadows() {
		sh := sh
		g.Go(func() error {
			toStart := time.Now()
			err := sh.SyncTo(ctx, s.master)
			s.recordSyncTo(toStart, err)
			if err != nil {
				return err
			}
			fromStart := time.Now()
			err = sh.SyncFrom(ctx, s.master)
			s.recordSyncFrom(fromStart, err)
			return err
		})
	}
	return g.Wait()
}

// CheckInvariants verifies every active shadow's working copy.
func (s *ShadowAccounts) CheckInvariants() error {
	for _, sh := range s.activeShadows() {
		if err := sh.CheckInvariants(); err != nil {
			return err
		}
	}
	return nil
}
