package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// IngestRepository writes catalogue rows and movements, used by the seed command
type IngestRepository struct {
	db *sql.DB
}

func NewIngestRepository(db *sql.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func (r *IngestRepository) UpsertCategory(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO categories (name)
		VALUES ($1)
		ON CONFLICT (name)
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert category: %w", err)
	}
	return id, nil
}

func (r *IngestRepository) UpsertProduct(ctx context.Context, product *domain.Product) (int64, error) {
	query := `
		INSERT INTO products (sku, name, category_id, current_stock, unit_price, velocity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (sku)
		DO UPDATE SET
			name = EXCLUDED.name,
			category_id = EXCLUDED.category_id,
			current_stock = EXCLUDED.current_stock,
			unit_price = EXCLUDED.unit_price,
			velocity = EXCLUDED.velocity,
			updated_at = NOW()
		RETURNING id
	`

	var categoryID sql.NullInt64
	if product.HasCategory() {
		categoryID = sql.NullInt64{Int64: product.CategoryID, Valid: true}
	}
	var price decimal.NullDecimal
	if product.UnitPrice != nil {
		price = decimal.NewNullDecimal(decimal.NewFromFloat(*product.UnitPrice).Round(2))
	}
	velocity := product.Velocity
	if velocity == "" {
		velocity = domain.VelocityMedium
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		product.SKU,
		product.Name,
		categoryID,
		product.CurrentStock,
		price,
		string(velocity),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}
	return id, nil
}

// InsertMovements writes all movements in one transaction
func (r *IngestRepository) InsertMovements(ctx context.Context, movements []domain.Movement) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_movements (product_id, movement_date, quantity, movement_type)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare movement insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range movements {
		if _, err := stmt.ExecContext(ctx, m.ProductID, m.Date, m.Quantity, string(m.Type)); err != nil {
			return i, fmt.Errorf("failed to insert movement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit movements: %w", err)
	}
	return len(movements), nil
}
