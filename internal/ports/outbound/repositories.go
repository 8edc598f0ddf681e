package outbound

import (
	"context"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, auction *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves a list of auctions with optional status filter
	List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error)

	// GetActiveByPaintingID retrieves active auctions for a specific painting
	GetActiveByPaintingID(ctx context.Context, paintingID uuid.UUID) ([]*auction.Auction, error)

	// ListExpiredActive retrieves auctions that are still active but whose
	// end time is at or before now, capped at limit rows per call
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error)
}

// BidRepository defines the interface for the bid ledger.
//
// AdmitBid is the conditional-update primitive the bidding engine relies on:
// the bid row is appended and the auction's highest-bid fields are updated in
// one transaction, but only while the auction is active and the new amount
// still beats the recorded highest at commit time. A bid that loses that race
// stays in the ledger and reports tookLead=false.
type BidRepository interface {
	// GetByAuctionID retrieves all bids for an auction, highest first
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the current winning bid for an auction
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// AdmitBid appends a bid and conditionally takes the lead
	AdmitBid(ctx context.Context, newBid *bid.Bid) (tookLead bool, err error)

	// WithdrawUserBids removes all of a user's bids for an auction and
	// recomputes the auction's highest-bid fields from the remaining ledger
	WithdrawUserBids(ctx context.Context, auctionID, userID uuid.UUID) error
}

// WalletRepository defines the interface for user wallet reads. Balances are
// mutated only through SettlementStore.Settle; bids never reserve funds.
type WalletRepository interface {
	// GetByID retrieves a user with its wallet balance
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)

	// Create creates a new user
	Create(ctx context.Context, user *shared.User) error
}

// PaintingRepository defines the interface for painting data operations
type PaintingRepository interface {
	// Create creates a new painting
	Create(ctx context.Context, painting *shared.Painting) error

	// GetByID retrieves a painting by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.Painting, error)

	// ListInventory retrieves the auction-acquired inventory of a user
	ListInventory(ctx context.Context, userID uuid.UUID) ([]*shared.InventoryRecord, error)
}

// SettlementParams carries everything SettlementStore needs to finalize an
// auction in one atomic unit.
type SettlementParams struct {
	AuctionID  uuid.UUID
	OwnerID    uuid.UUID
	PaintingID uuid.UUID

	// WinnerID is nil when the auction expired with no bids; no funds move.
	WinnerID *uuid.UUID

	// Amount is the winning amount; ignored when WinnerID is nil.
	Amount int64

	// BuyoutBid, when set, is appended to the ledger and unconditionally
	// made the highest bid inside the same transaction (buyout override).
	BuyoutBid *bid.Bid
}

// SettlementStore executes the settlement transaction: conditional status
// transition active->closed, winner debit, owner credit, two wallet ledger
// rows, and the inventory transfer. Exactly one concurrent caller can win the
// status transition; the rest get shared.ErrAuctionAlreadySettled and no
// writes. An insufficient winner balance rolls the whole unit back and the
// auction remains active.
type SettlementStore interface {
	Settle(ctx context.Context, params SettlementParams) error
}
