package ledger

import "sync"

// sequenceTracker assigns and validates monotonic per-shadow sequence
// numbers used to reject stale syncTo calls. It is keyed by
// "<accountKey>|<shadowID>" so a single shadow's sequence counters are
// independent across the accounts it talks about.
//
// Not exported: it is a private detail of Accounts, not part of the
// package's public surface.
type sequenceTracker struct {
	mu   sync.Mutex
	next map[string]int64
}

func newSequenceTracker() *sequenceTracker {
	return &sequenceTracker{next: make(map[string]int64)}
}

// checkAndAdvance validates that clientSeq matches the tracker's
// expectation for partition, then advances it. Returns the new
// expected sequence and whether the call was accepted.
func (s *sequenceTracker) checkAndAdvance(partition string, clientSeq int64) (newSeq int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expected := s.next[partition]
	if clientSeq != expected {
		return expected, false
	}
	s.next[partition] = expected + 1
	return s.next[partition], true
}
