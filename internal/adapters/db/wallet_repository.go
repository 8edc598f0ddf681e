package db

import (
	"context"
	"database/sql"
	"fmt"

	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// WalletRepository implements read access to users and their wallet balances.
// Balance mutations happen only inside the settlement transaction.
type WalletRepository struct {
	conn *Connection
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(conn *Connection) *WalletRepository {
	return &WalletRepository{conn: conn}
}

// GetByID retrieves a user with its wallet balance
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	query := `
		SELECT id, name, balance
		FROM users
		WHERE id = $1
	`

	var user shared.User
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Balance,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Create creates a new user
func (r *WalletRepository) Create(ctx context.Context, user *shared.User) error {
	query := `
		INSERT INTO users (id, name, balance)
		VALUES ($1, $2, $3)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Balance,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}
