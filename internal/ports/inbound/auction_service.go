package inbound

import (
	"context"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionService defines the interface for auction lifecycle operations
type AuctionService interface {
	// CreateAuction creates a new auction listing
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// ListAuctions retrieves a list of auctions
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// EndAuction closes an auction manually and settles it with the current
	// highest bidder as winner (or no winner when the ledger is empty)
	EndAuction(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error)
}

// BiddingService is the single entry point for all bid admission. Every
// transport (websocket commands, the expiry scanner's settlement path) funnels
// through this contract.
type BiddingService interface {
	// PlaceBid validates and admits a bid against an auction's current state.
	// An amount at or above the buyout price settles the auction immediately.
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*PlaceBidResult, error)

	// BuyOut closes the auction instantly at the buyout price. Idempotent:
	// a buyout against an already-closed auction reports
	// shared.ErrAuctionAlreadySettled and performs no state change.
	BuyOut(ctx context.Context, req BuyOutRequest) (*shared.SettlementResult, error)

	// LeaveAuction withdraws all of the user's bids from the auction and
	// recomputes the current highest bid from the remaining ledger
	LeaveAuction(ctx context.Context, auctionID, userID uuid.UUID) error

	// GetBids retrieves the bid ledger for an auction, highest first
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the current winning bid for an auction
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)
}

// request to create an auction
type CreateAuctionRequest struct {
	PaintingID    uuid.UUID `json:"painting_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	StartingPrice int64     `json:"starting_price"`
	BuyoutPrice   int64     `json:"buyout_price"`
	EndTime       string    `json:"end_time"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status   *auction.Status `json:"status,omitempty"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
}

// PlaceBidResult reports what happened to an admitted bid
type PlaceBidResult struct {
	Bid *bid.Bid `json:"bid"`

	// TookLead is false when the bid was appended to the ledger but a
	// concurrent higher bid won the conditional update; the caller may
	// refresh auction state and resubmit.
	TookLead bool `json:"took_lead"`

	// Settlement is set when the bid reached the buyout price and closed
	// the auction immediately.
	Settlement *shared.SettlementResult `json:"settlement,omitempty"`
}

// request to buy out an auction
type BuyOutRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	UserID    uuid.UUID `json:"user_id"`
}
