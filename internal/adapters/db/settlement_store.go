package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"artmarket-auction-service/internal/domain/shared"
	"artmarket-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// SettlementStore executes the settlement transaction over postgres
type SettlementStore struct {
	conn *Connection
}

// NewSettlementStore creates a new settlement store
func NewSettlementStore(conn *Connection) *SettlementStore {
	return &SettlementStore{conn: conn}
}

/*
Settle finalizes an auction in a single transaction:

 1. Conditional status transition active->closed (winner recorded in the same
    statement). Only one concurrent caller can match the guard; every other
    caller gets shared.ErrAuctionAlreadySettled and writes nothing.
 2. For the buyout path, the buyout bid row is inserted and unconditionally
    made the highest bid. Buyout is a hard override: it wins regardless of
    concurrently admitted regular bids.
 3. With a winner: debit the winner guarded on balance >= amount (a guard
    miss rolls the whole unit back, the auction stays active and the caller
    gets shared.ErrInsufficientFunds), credit the owner, write the two wallet
    ledger rows, and move the painting into the winner's inventory.
 4. With no winner: the close alone commits; no funds move.

Any failure aborts the transaction, so retried calls observe either the
original active state or the fully settled one, never anything in between.
*/
func (s *SettlementStore) Settle(ctx context.Context, params outbound.SettlementParams) error {
	return s.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		now := time.Now()

		closeQuery := `
			UPDATE auctions
			SET status = 'closed', winner_id = $2, updated_at = $3
			WHERE id = $1 AND status = 'active'
		`

		result, err := tx.ExecContext(ctx, closeQuery, params.AuctionID, params.WinnerID, now)
		if err != nil {
			return fmt.Errorf("failed to close auction: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return shared.ErrAuctionAlreadySettled
		}

		if params.BuyoutBid != nil {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO bids (id, auction_id, user_id, username, amount, is_buyout, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				params.BuyoutBid.ID,
				params.BuyoutBid.AuctionID,
				params.BuyoutBid.UserID,
				params.BuyoutBid.Username,
				params.BuyoutBid.Amount,
				params.BuyoutBid.IsBuyout,
				params.BuyoutBid.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert buyout bid: %w", err)
			}

			// No highest-bid guard here: the buyout overrides any
			// concurrently admitted regular bid.
			_, err = tx.ExecContext(ctx,
				`UPDATE auctions
				 SET current_highest_bid = $2, current_highest_bidder = $3, updated_at = $4
				 WHERE id = $1`,
				params.AuctionID,
				params.BuyoutBid.Amount,
				params.BuyoutBid.UserID,
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to record buyout as highest bid: %w", err)
			}
		}

		if params.WinnerID == nil {
			return nil
		}

		if err := s.transferFunds(ctx, tx, params, now); err != nil {
			return err
		}

		return s.transferPainting(ctx, tx, params, now)
	})
}

// transferFunds moves the winning amount from winner to owner and writes the
// debit/credit ledger rows.
func (s *SettlementStore) transferFunds(ctx context.Context, tx *sql.Tx, params outbound.SettlementParams, now time.Time) error {
	debitQuery := `
		UPDATE users
		SET balance = balance - $2
		WHERE id = $1 AND balance >= $2
	`

	result, err := tx.ExecContext(ctx, debitQuery, params.WinnerID, params.Amount)
	if err != nil {
		return fmt.Errorf("failed to debit winner: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Winner cannot cover the amount at settlement time; the rollback
		// leaves the auction active for retry or manual resolution.
		return shared.ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`,
		params.OwnerID, params.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to credit owner: %w", err)
	}

	ledgerQuery := `
		INSERT INTO wallet_transactions (id, user_id, auction_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.ExecContext(ctx, ledgerQuery,
		uuid.New(), params.WinnerID, params.AuctionID, -params.Amount, shared.TransactionDebit, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record debit transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, ledgerQuery,
		uuid.New(), params.OwnerID, params.AuctionID, params.Amount, shared.TransactionCredit, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}

	return nil
}

// transferPainting hands the painting to the winner and records the
// acquisition in the winner's inventory.
func (s *SettlementStore) transferPainting(ctx context.Context, tx *sql.Tx, params outbound.SettlementParams, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE paintings SET owner_id = $2, updated_at = $3 WHERE id = $1`,
		params.PaintingID, params.WinnerID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to transfer painting: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory (id, user_id, painting_id, auction_id, acquired_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), params.WinnerID, params.PaintingID, params.AuctionID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record inventory acquisition: %w", err)
	}

	return nil
}
