package shared

import (
	"time"

	"github.com/google/uuid"
)

// User represents a marketplace account with its wallet balance. Identity is
// supplied by the external session layer; the core trusts the ID as given.
type User struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Balance int64     `json:"balance"`
}

// CanAfford returns true if the wallet covers the given amount
func (u *User) CanAfford(amount int64) bool {
	return u.Balance >= amount
}

// Painting represents an artwork that can be listed for auction
type Painting struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InventoryRecord records a painting entering a user's inventory through a
// settled auction. Written exactly once per settlement with a winner.
type InventoryRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	PaintingID uuid.UUID `json:"painting_id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// TransactionKind discriminates wallet ledger rows
type TransactionKind string

const (
	TransactionDebit  TransactionKind = "debit"
	TransactionCredit TransactionKind = "credit"
)

// WalletTransaction is one side of a settlement transfer. A funded settlement
// writes exactly two rows: a debit against the winner and a credit to the owner.
type WalletTransaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	Amount    int64           `json:"amount"`
	Kind      TransactionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}
