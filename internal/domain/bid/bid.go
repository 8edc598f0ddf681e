package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents an admitted monetary offer against an auction. Bids are
// immutable once written; the ledger of bids per auction is append-only
// (LeaveAuction withdrawal being the single exception).
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Amount    int64     `json:"amount"`
	IsBuyout  bool      `json:"is_buyout"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValid returns true if the bid amount is a positive number of currency units
func (b *Bid) IsValid() bool {
	return b.Amount > 0
}

// Outranks reports whether this bid beats other under the ledger ordering:
// higher amount wins, ties broken by earliest admission time.
func (b *Bid) Outranks(other *Bid) bool {
	if other == nil {
		return true
	}
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// Highest returns the winning bid of a ledger slice under the same ordering,
// or nil for an empty slice.
func Highest(bids []*Bid) *Bid {
	var top *Bid
	for _, b := range bids {
		if b.Outranks(top) {
			top = b
		}
	}
	return top
}
