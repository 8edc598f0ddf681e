package db

import (
	"context"
	"database/sql"
	"fmt"

	"artmarket-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// PaintingRepository implements the painting repository interface
type PaintingRepository struct {
	conn *Connection
}

// NewPaintingRepository creates a new painting repository
func NewPaintingRepository(conn *Connection) *PaintingRepository {
	return &PaintingRepository{conn: conn}
}

// Create creates a new painting
func (r *PaintingRepository) Create(ctx context.Context, painting *shared.Painting) error {
	query := `
		INSERT INTO paintings (id, owner_id, title, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		painting.ID,
		painting.OwnerID,
		painting.Title,
		painting.Description,
		painting.ImageURL,
		painting.CreatedAt,
		painting.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create painting: %w", err)
	}

	return nil
}

// GetByID retrieves a painting by ID
func (r *PaintingRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.Painting, error) {
	query := `
		SELECT id, owner_id, title, description, image_url, created_at, updated_at
		FROM paintings
		WHERE id = $1
	`

	var painting shared.Painting
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&painting.ID,
		&painting.OwnerID,
		&painting.Title,
		&painting.Description,
		&painting.ImageURL,
		&painting.CreatedAt,
		&painting.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrPaintingNotFound
		}
		return nil, fmt.Errorf("failed to get painting: %w", err)
	}

	return &painting, nil
}

// ListInventory retrieves the auction-acquired inventory of a user, most
// recent acquisition first
func (r *PaintingRepository) ListInventory(ctx context.Context, userID uuid.UUID) ([]*shared.InventoryRecord, error) {
	query := `
		SELECT id, user_id, painting_id, auction_id, acquired_at
		FROM inventory
		WHERE user_id = $1
		ORDER BY acquired_at DESC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var records []*shared.InventoryRecord
	for rows.Next() {
		var rec shared.InventoryRecord
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.PaintingID,
			&rec.AuctionID,
			&rec.AcquiredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, &rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return records, nil
}
