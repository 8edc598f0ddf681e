package db

import (
	"artmarket-auction-service/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetBidRepository returns the bid ledger repository
func (f *RepositoryFactory) GetBidRepository() outbound.BidRepository {
	return NewBidRepository(f.conn)
}

// GetPaintingRepository returns the painting repository
func (f *RepositoryFactory) GetPaintingRepository() outbound.PaintingRepository {
	return NewPaintingRepository(f.conn)
}

// GetWalletRepository returns the wallet repository
func (f *RepositoryFactory) GetWalletRepository() outbound.WalletRepository {
	return NewWalletRepository(f.conn)
}

// GetSettlementStore returns the settlement store
func (f *RepositoryFactory) GetSettlementStore() outbound.SettlementStore {
	return NewSettlementStore(f.conn)
}
