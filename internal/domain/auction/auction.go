package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of an auction
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Auction represents a time-bounded sale of a single painting.
// Status is monotonic: once closed, an auction never reverts to active.
type Auction struct {
	ID                   uuid.UUID  `json:"id"`
	PaintingID           uuid.UUID  `json:"painting_id"`
	OwnerID              uuid.UUID  `json:"owner_id"`
	StartingPrice        int64      `json:"starting_price"`
	BuyoutPrice          int64      `json:"buyout_price"`
	EndTime              time.Time  `json:"end_time"`
	Status               Status     `json:"status"`
	CurrentHighestBid    *int64     `json:"current_highest_bid,omitempty"`
	CurrentHighestBidder *uuid.UUID `json:"current_highest_bidder,omitempty"`
	WinnerID             *uuid.UUID `json:"winner_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsActive returns true if the auction is still accepting bids
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsClosed returns true if the auction has been settled
func (a *Auction) IsClosed() bool {
	return a.Status == StatusClosed
}

// IsExpired returns true if the auction's end time has passed
func (a *Auction) IsExpired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// MinimumAcceptableBid returns the lowest amount that would be admitted as a
// new highest bid: one unit above the current highest, or above the starting
// price when no bid has been admitted yet.
func (a *Auction) MinimumAcceptableBid() int64 {
	if a.CurrentHighestBid != nil {
		return *a.CurrentHighestBid + 1
	}
	return a.StartingPrice + 1
}

// ReachesBuyout returns true if amount is at or above the buyout price
func (a *Auction) ReachesBuyout(amount int64) bool {
	return amount >= a.BuyoutPrice
}
