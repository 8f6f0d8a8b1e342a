// Package bankerrors defines the typed error kinds raised by the
// account, ledger, and shadow packages. Callers use errors.As to
// recover the concrete kind and its fields rather than matching on
// error strings.
package bankerrors

import "fmt"

// InvariantViolation reports that an account's closed balance equation
// (or a non-negativity constraint) failed to hold.
type InvariantViolation struct {
	Account string
	Field   string
	Detail  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on account %q, field %q: %s", e.Account, e.Field, e.Detail)
}

// InsufficientFunds reports that an operation needed more money than
// was available to move.
type InsufficientFunds struct {
	Account   string
	Currency  string
	Requested int64
	Available int64
}

func (e *InsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds on account %q: requested %d %s, only %d available",
		e.Account, e.Requested, e.Currency, e.Available)
}

// BudgetExceedsAvailable reports that setBudget was asked to reduce an
// account's net budget below the minimum the account's already-spent
// or already-allocated funds allow.
type BudgetExceedsAvailable struct {
	Account    string
	Currency   string
	Requested  int64
	MinAllowed int64
}

func (e *BudgetExceedsAvailable) Error() string {
	return fmt.Sprintf("cannot set budget on account %q to %d %s: minimum allowed is %d",
		e.Account, e.Requested, e.Currency, e.MinAllowed)
}

// AccountExists reports that createBudgetAccount/createSpendAccount was
// called for a key that already holds an account of a conflicting type.
type AccountExists struct {
	Key          string
	ExistingType string
	RequestType  string
}

func (e *AccountExists) Error() string {
	return fmt.Sprintf("account %q already exists as type %s, cannot create as type %s",
		e.Key, e.ExistingType, e.RequestType)
}

// AccountMissing reports that an operation named an account key that
// has never been created.
type AccountMissing struct {
	Key string
}

func (e *AccountMissing) Error() string {
	return fmt.Sprintf("no account at key %q", e.Key)
}

// TypeMismatch reports that an operation requires a different account
// type than the one found at the key.
type TypeMismatch struct {
	Key          string
	ExpectedType string
	ActualType   string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("account %q has type %s, expected %s", e.Key, e.ActualType, e.ExpectedType)
}

// DuplicateBid reports that authorizeBid was called with a bid ID
// already tracked on the same shadow account.
type DuplicateBid struct {
	Account string
	BidID   string
}

func (e *DuplicateBid) Error() string {
	return fmt.Sprintf("bid %q already authorized on account %q", e.BidID, e.Account)
}

// UnknownBid reports an operation against a bid ID this shadow account
// has never seen, or has already retired.
type UnknownBid struct {
	Account string
	BidID   string
}

func (e *UnknownBid) Error() string {
	return fmt.Sprintf("unknown bid %q on account %q", e.BidID, e.Account)
}

// WrongBidState reports that a bid exists but is not in the state the
// requested transition requires.
type WrongBidState struct {
	Account string
	BidID   string
	State   string
}

func (e *WrongBidState) Error() string {
	return fmt.Sprintf("bid %q on account %q is in state %s, not valid for this operation", e.BidID, e.Account, e.State)
}

// StaleSync reports that a shadow's syncTo carried a sequence number
// that no longer matches the master's expectation for that shadow,
// meaning the shadow's view of its own outstanding delta is stale.
type StaleSync struct {
	Account   string
	ShadowID  string
	MasterSeq int64
	ClientSeq int64
}

func (e *StaleSync) Error() string {
	return fmt.Sprintf("stale sync on account %q from shadow %q: master is at seq %d, client sent %d",
		e.Account, e.ShadowID, e.MasterSeq, e.ClientSeq)
}

// RootOnlyOperation reports that an operation legal only at a length-1
// account key was invoked on a nested account.
type RootOnlyOperation struct {
	Key string
	Op  string
}

func (e *RootOnlyOperation) Error() string {
	return fmt.Sprintf("operation %s is only legal on a root account, got %q", e.Op, e.Key)
}

// SpentExceedsAuthorized reports that commitBid or commitDetachedBid
// was asked to spend more than the bid's authorized amount.
type SpentExceedsAuthorized struct {
	Account     string
	BidID       string
	Authorized  int64
	Spent       int64
}

func (e *SpentExceedsAuthorized) Error() string {
	return fmt.Sprintf("bid %q on account %q: spent %d exceeds authorized %d", e.BidID, e.Account, e.Spent, e.Authorized)
}

// Kind identifies the concrete error type by a short, wire-stable name,
// used to carry the error's kind across a transport (like RPC) that
// only preserves an error's message. It returns "" for any error not
// defined in this package.
func Kind(err error) string {
	switch err.(type) {
	case *InvariantViolation:
		return "invariant_violation"
	case *InsufficientFunds:
		return "insufficient_funds"
	case *BudgetExceedsAvailable:
		return "budget_exceeds_available"
	case *AccountExists:
		return "account_exists"
	case *AccountMissing:
		return "account_missing"
	case *TypeMismatch:
		return "type_mismatch"
	case *DuplicateBid:
		return "duplicate_bid"
	case *UnknownBid:
		return "unknown_bid"
	case *WrongBidState:
		return "wrong_bid_state"
	case *StaleSync:
		return "stale_sync"
	case *RootOnlyOperation:
		return "root_only_operation"
	case *SpentExceedsAuthorized:
		return "spent_exceeds_authorized"
	default:
		return ""
	}
}

// RemoteError reconstructs the kind of a bankerrors failure that
// crossed an RPC boundary, without its original typed fields: the
// wire only carries a kind and a rendered message. IsStaleSync is the
// only kind a caller currently branches on, so RemoteError exposes
// just that check rather than a full errors.As-compatible hierarchy.
type RemoteError struct {
	KindName string
	Message  string
}

func (e *RemoteError) Error() string { return e.Message }

// IsStaleSync reports whether err is a StaleSync failure, whether it
// arrived in-process as *StaleSync or crossed RPC as *RemoteError.
func IsStaleSync(err error) bool {
	switch e := err.(type) {
	case *StaleSync:
		return true
	case *RemoteError:
		return e.KindName == "stale_sync"
	default:
		return false
	}
}
