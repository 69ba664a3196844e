package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type movementRepository struct {
	db *sqlx.DB
}

func NewMovementRepository(db *sqlx.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) ListOutboundMovements(ctx context.Context, productID int64, since time.Time) ([]domain.Movement, error) {
	query := `
		SELECT product_id, movement_date, quantity, movement_type
		FROM stock_movements
		WHERE product_id = $1
		  AND movement_type = $2
		  AND movement_date >= $3
		ORDER BY movement_date ASC
	`

	movements := make([]domain.Movement, 0)
	if err := r.db.SelectContext(ctx, &movements, query, productID, string(domain.MovementOutbound), since); err != nil {
		return nil, fmt.Errorf("error listing movements for product %d: %w", productID, err)
	}

	return movements, nil
}
