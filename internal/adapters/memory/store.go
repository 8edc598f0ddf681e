// Package memory provides a mutex-guarded in-memory implementation of the
// outbound store ports with the same conditional-update semantics as the
// postgres adapters. It backs the unit tests for the bidding engine,
// settlement processor and expiry scanner.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// Store holds all aggregates behind one lock. The typed accessors expose it
// through the same outbound interfaces the postgres adapters implement.
type Store struct {
	mu           sync.RWMutex
	auctions     map[uuid.UUID]*auction.Auction
	bids         map[uuid.UUID][]*bid.Bid // auctionID -> ledger
	users        map[uuid.UUID]*shared.User
	paintings    map[uuid.UUID]*shared.Painting
	inventory    []*shared.InventoryRecord
	transactions []*shared.WalletTransaction
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		auctions:  make(map[uuid.UUID]*auction.Auction),
		bids:      make(map[uuid.UUID][]*bid.Bid),
		users:     make(map[uuid.UUID]*shared.User),
		paintings: make(map[uuid.UUID]*shared.Painting),
	}
}

// Auctions returns the store as an auction repository
func (s *Store) Auctions() outbound.AuctionRepository { return &auctionRepo{s} }

// Bids returns the store as a bid ledger
func (s *Store) Bids() outbound.BidRepository { return &bidRepo{s} }

// Wallets returns the store as a wallet repository
func (s *Store) Wallets() outbound.WalletRepository { return &walletRepo{s} }

// Paintings returns the store as a painting repository
func (s *Store) Paintings() outbound.PaintingRepository { return &paintingRepo{s} }

// Settlements returns the store as a settlement store
func (s *Store) Settlements() outbound.SettlementStore { return &settlementStore{s} }

// Transactions returns a snapshot of all wallet ledger rows
func (s *Store) Transactions() []*shared.WalletTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*shared.WalletTransaction(nil), s.transactions...)
}

// Inventory returns a snapshot of all inventory records
func (s *Store) Inventory() []*shared.InventoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*shared.InventoryRecord(nil), s.inventory...)
}

type auctionRepo struct{ s *Store }

func (r *auctionRepo) Create(ctx context.Context, a *auction.Auction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *a
	r.s.auctions[a.ID] = &cp
	return nil
}

func (r *auctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *auctionRepo) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []*auction.Auction
	for _, a := range r.s.auctions {
		if status != nil && a.Status != *status {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *auctionRepo) GetActiveByPaintingID(ctx context.Context, paintingID uuid.UUID) ([]*auction.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var active []*auction.Auction
	for _, a := range r.s.auctions {
		if a.PaintingID == paintingID && a.Status == auction.StatusActive {
			cp := *a
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (r *auctionRepo) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var expired []*auction.Auction
	for _, a := range r.s.auctions {
		if a.Status == auction.StatusActive && !a.EndTime.After(now) {
			cp := *a
			expired = append(expired, &cp)
		}
	}

	sort.Slice(expired, func(i, j int) bool { return expired[i].EndTime.Before(expired[j].EndTime) })

	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

type bidRepo struct{ s *Store }

func (r *bidRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ledger := append([]*bid.Bid(nil), r.s.bids[auctionID]...)
	sort.Slice(ledger, func(i, j int) bool { return ledger[i].Outranks(ledger[j]) })
	return ledger, nil
}

func (r *bidRepo) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	top := bid.Highest(r.s.bids[auctionID])
	if top == nil {
		return nil, shared.ErrNoBidsFound
	}
	cp := *top
	return &cp, nil
}

// AdmitBid mirrors the postgres adapter: the ledger row is always appended
// while the auction is active, but the highest-bid fields move only when the
// new amount still beats the recorded highest.
func (r *bidRepo) AdmitBid(ctx context.Context, newBid *bid.Bid) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.auctions[newBid.AuctionID]
	if !ok {
		return false, shared.ErrAuctionNotFound
	}
	if a.Status != auction.StatusActive {
		return false, shared.ErrAuctionClosed
	}

	cp := *newBid
	r.s.bids[newBid.AuctionID] = append(r.s.bids[newBid.AuctionID], &cp)

	if a.CurrentHighestBid == nil || *a.CurrentHighestBid < newBid.Amount {
		amount := newBid.Amount
		bidder := newBid.UserID
		a.CurrentHighestBid = &amount
		a.CurrentHighestBidder = &bidder
		a.UpdatedAt = newBid.CreatedAt
		return true, nil
	}

	return false, nil
}

func (r *bidRepo) WithdrawUserBids(ctx context.Context, auctionID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.auctions[auctionID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if a.Status != auction.StatusActive {
		return shared.ErrAuctionClosed
	}

	var remaining []*bid.Bid
	for _, b := range r.s.bids[auctionID] {
		if b.UserID != userID {
			remaining = append(remaining, b)
		}
	}
	r.s.bids[auctionID] = remaining

	if top := bid.Highest(remaining); top != nil {
		amount := top.Amount
		bidder := top.UserID
		a.CurrentHighestBid = &amount
		a.CurrentHighestBidder = &bidder
	} else {
		a.CurrentHighestBid = nil
		a.CurrentHighestBidder = nil
	}

	return nil
}

type walletRepo struct{ s *Store }

func (r *walletRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *walletRepo) Create(ctx context.Context, user *shared.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type paintingRepo struct{ s *Store }

func (r *paintingRepo) Create(ctx context.Context, painting *shared.Painting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *painting
	r.s.paintings[painting.ID] = &cp
	return nil
}

func (r *paintingRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.Painting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.paintings[id]
	if !ok {
		return nil, shared.ErrPaintingNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *paintingRepo) ListInventory(ctx context.Context, userID uuid.UUID) ([]*shared.InventoryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var records []*shared.InventoryRecord
	for _, rec := range r.s.inventory {
		if rec.UserID == userID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	return records, nil
}

type settlementStore struct{ s *Store }

// Settle mirrors the postgres settlement transaction: the conditional
// active->closed transition admits exactly one caller, and an unaffordable
// winner aborts with no state change at all.
func (r *settlementStore) Settle(ctx context.Context, params outbound.SettlementParams) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.auctions[params.AuctionID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if a.Status != auction.StatusActive {
		return shared.ErrAuctionAlreadySettled
	}

	// Validate funds before mutating anything; the postgres adapter gets the
	// same all-or-nothing behavior from its transaction rollback.
	if params.WinnerID != nil {
		winner, ok := r.s.users[*params.WinnerID]
		if !ok {
			return shared.ErrUserNotFound
		}
		if winner.Balance < params.Amount {
			return shared.ErrInsufficientFunds
		}
	}

	now := time.Now()

	a.Status = auction.StatusClosed
	a.WinnerID = params.WinnerID
	a.UpdatedAt = now

	if params.BuyoutBid != nil {
		cp := *params.BuyoutBid
		r.s.bids[params.AuctionID] = append(r.s.bids[params.AuctionID], &cp)

		amount := cp.Amount
		bidder := cp.UserID
		a.CurrentHighestBid = &amount
		a.CurrentHighestBidder = &bidder
	}

	if params.WinnerID == nil {
		return nil
	}

	winner := r.s.users[*params.WinnerID]
	winner.Balance -= params.Amount
	if owner, ok := r.s.users[params.OwnerID]; ok {
		owner.Balance += params.Amount
	}

	r.s.transactions = append(r.s.transactions,
		&shared.WalletTransaction{
			ID:        uuid.New(),
			UserID:    *params.WinnerID,
			AuctionID: params.AuctionID,
			Amount:    -params.Amount,
			Kind:      shared.TransactionDebit,
			CreatedAt: now,
		},
		&shared.WalletTransaction{
			ID:        uuid.New(),
			UserID:    params.OwnerID,
			AuctionID: params.AuctionID,
			Amount:    params.Amount,
			Kind:      shared.TransactionCredit,
			CreatedAt: now,
		},
	)

	if painting, ok := r.s.paintings[params.PaintingID]; ok {
		painting.OwnerID = *params.WinnerID
		painting.UpdatedAt = now
	}

	r.s.inventory = append(r.s.inventory, &shared.InventoryRecord{
		ID:         uuid.New(),
		UserID:     *params.WinnerID,
		PaintingID: params.PaintingID,
		AuctionID:  params.AuctionID,
		AcquiredAt: now,
	})

	return nil
}
