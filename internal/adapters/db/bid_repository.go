package db

import (
	"context"
	"database/sql"
	"fmt"

	"artmarket-auction-service/internal/domain/bid"
	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

const bidColumns = `id, auction_id, user_id, username, amount, is_buyout, created_at`

// BidRepository implements the bid ledger over postgres
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

func scanBid(scanner interface{ Scan(...interface{}) error }) (*bid.Bid, error) {
	var b bid.Bid
	err := scanner.Scan(
		&b.ID,
		&b.AuctionID,
		&b.UserID,
		&b.Username,
		&b.Amount,
		&b.IsBuyout,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByAuctionID retrieves all bids for an auction, highest first
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetHighestBid retrieves the winning bid for an auction: max amount, ties
// broken by earliest admission time.
func (r *BidRepository) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1`

	b, err := scanBid(r.conn.GetDB().QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return b, nil
}

/*
AdmitBid appends a bid and conditionally takes the lead, in one transaction:
 1. Re-check the auction is still active (a closed auction accepts no rows).
 2. Insert the bid row into the ledger.
 3. Conditionally update the auction's highest-bid fields, guarded on
    status='active' and the new amount still beating the recorded highest.
 4. If the guard matched no row, a concurrent bid won the race: the ledger
    row stays committed and the caller is told the bid did not take the lead.

The guard is what keeps current_highest_bid from ever regressing under
concurrent admission.
*/
func (r *BidRepository) AdmitBid(ctx context.Context, newBid *bid.Bid) (bool, error) {
	tookLead := false

	err := r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM auctions WHERE id = $1`, newBid.AuctionID,
		).Scan(&status)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to get auction for bid admission: %w", err)
		}

		if status != "active" {
			return shared.ErrAuctionClosed
		}

		insertQuery := `
			INSERT INTO bids (id, auction_id, user_id, username, amount, is_buyout, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err = tx.ExecContext(ctx, insertQuery,
			newBid.ID,
			newBid.AuctionID,
			newBid.UserID,
			newBid.Username,
			newBid.Amount,
			newBid.IsBuyout,
			newBid.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		updateQuery := `
			UPDATE auctions
			SET current_highest_bid = $2, current_highest_bidder = $3, updated_at = $4
			WHERE id = $1
			  AND status = 'active'
			  AND COALESCE(current_highest_bid, 0) < $2
		`

		result, err := tx.ExecContext(ctx, updateQuery,
			newBid.AuctionID,
			newBid.Amount,
			newBid.UserID,
			newBid.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update auction highest bid: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		tookLead = rowsAffected > 0
		return nil
	})

	if err != nil {
		return false, err
	}
	return tookLead, nil
}

// WithdrawUserBids removes all of a user's bids for an auction and recomputes
// the auction's highest-bid fields from the remaining ledger, resetting to
// no-bids when the ledger empties. The recompute is guarded on status='active'
// so a settled auction is never touched.
func (r *BidRepository) WithdrawUserBids(ctx context.Context, auctionID, userID uuid.UUID) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM bids WHERE auction_id = $1 AND user_id = $2`,
			auctionID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete user bids: %w", err)
		}

		remaining, err := scanBid(tx.QueryRowContext(ctx,
			`SELECT `+bidColumns+`
			 FROM bids
			 WHERE auction_id = $1
			 ORDER BY amount DESC, created_at ASC
			 LIMIT 1`,
			auctionID,
		))
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to recompute highest bid: %w", err)
		}

		var result sql.Result
		if remaining != nil {
			result, err = tx.ExecContext(ctx,
				`UPDATE auctions
				 SET current_highest_bid = $2, current_highest_bidder = $3, updated_at = now()
				 WHERE id = $1 AND status = 'active'`,
				auctionID, remaining.Amount, remaining.UserID,
			)
		} else {
			result, err = tx.ExecContext(ctx,
				`UPDATE auctions
				 SET current_highest_bid = NULL, current_highest_bidder = NULL, updated_at = now()
				 WHERE id = $1 AND status = 'active'`,
				auctionID,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to update auction after withdrawal: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return shared.ErrAuctionClosed
		}

		return nil
	})
}
