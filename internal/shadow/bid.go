package shadow

import "banker/internal/money"

// BidState is the lifecycle stage of a single authorized bid.
type BidState int

const (
	// BidAuthorized reserves funds against the account but has not
	// yet been resolved.
	BidAuthorized BidState = iota
	// BidDetached has left this shadow's custody for another shadow
	// to resolve via CommitDetachedBid.
	BidDetached
	// BidCommitted has recorded real spend and released any unspent
	// remainder back to the account.
	BidCommitted
	// BidCancelled released its full reservation back to the account
	// without recording any spend.
	BidCancelled
)

func (s BidState) String() string {
	switch s {
	case BidDetached:
		return "detached"
	case BidCommitted:
		return "committed"
	case BidCancelled:
		return "cancelled"
	default:
		return "authorized"
	}
}

// bidRecord tracks one outstanding authorization on a ShadowAccount.
type bidRecord struct {
	ID         string
	Authorized money.Amount
	State      BidState
}

// DetachedBid is the portable record handed off by DetachBid: it
// carries just enough to let a different ShadowAccount later resolve
// the reservation via CommitDetachedBid, without that shadow needing
// to have authorized the bid itself.
type DetachedBid struct {
	BidID      string
	Authorized money.Amount
}
