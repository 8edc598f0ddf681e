package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"artmarket-auction-service/internal/domain/auction"
	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

const auctionColumns = `id, painting_id, owner_id, starting_price, buyout_price, end_time, status,
		current_highest_bid, current_highest_bidder, winner_id, created_at, updated_at`

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, auction *auction.Auction) error {
	query := `
		INSERT INTO auctions (id, painting_id, owner_id, starting_price, buyout_price, end_time, status,
			current_highest_bid, current_highest_bidder, winner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		auction.ID,
		auction.PaintingID,
		auction.OwnerID,
		auction.StartingPrice,
		auction.BuyoutPrice,
		auction.EndTime,
		auction.Status,
		auction.CurrentHighestBid,
		auction.CurrentHighestBidder,
		auction.WinnerID,
		auction.CreatedAt,
		auction.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

func scanAuction(scanner interface{ Scan(...interface{}) error }) (*auction.Auction, error) {
	var a auction.Auction
	err := scanner.Scan(
		&a.ID,
		&a.PaintingID,
		&a.OwnerID,
		&a.StartingPrice,
		&a.BuyoutPrice,
		&a.EndTime,
		&a.Status,
		&a.CurrentHighestBid,
		&a.CurrentHighestBidder,
		&a.WinnerID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves a list of auctions with optional filters
func (r *AuctionRepository) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	baseQuery := `SELECT ` + auctionColumns + ` FROM auctions `

	var whereClause string
	var args []interface{}
	argCount := 1

	if status != nil {
		whereClause = "WHERE status = $1"
		args = append(args, *status)
		argCount++
	}

	// Add pagination
	limitClause := fmt.Sprintf("LIMIT $%d", argCount)
	offsetClause := fmt.Sprintf("OFFSET $%d", argCount+1)
	args = append(args, pageSize, (page-1)*pageSize)

	query := baseQuery + whereClause + " ORDER BY created_at DESC " + limitClause + " " + offsetClause

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

// GetActiveByPaintingID retrieves active auctions for a specific painting
func (r *AuctionRepository) GetActiveByPaintingID(ctx context.Context, paintingID uuid.UUID) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + `
		FROM auctions
		WHERE painting_id = $1 AND status = 'active'
		ORDER BY created_at DESC`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, paintingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active auctions by painting ID: %w", err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

// ListExpiredActive retrieves auctions that are past their end time but have
// not transitioned to closed yet. The scanner funnels these into settlement.
func (r *AuctionRepository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

func collectAuctions(rows *sql.Rows) ([]*auction.Auction, error) {
	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}
