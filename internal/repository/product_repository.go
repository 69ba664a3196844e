package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type productRow struct {
	ID           int64               `db:"id"`
	SKU          string              `db:"sku"`
	Name         string              `db:"name"`
	CategoryID   sql.NullInt64       `db:"category_id"`
	CurrentStock int                 `db:"current_stock"`
	UnitPrice    decimal.NullDecimal `db:"unit_price"`
	Velocity     string              `db:"velocity"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func (r productRow) toDomain() *domain.Product {
	p := &domain.Product{
		ID:           r.ID,
		SKU:          r.SKU,
		Name:         r.Name,
		CurrentStock: r.CurrentStock,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		p.CategoryID = r.CategoryID.Int64
	}
	if r.UnitPrice.Valid {
		price := r.UnitPrice.Decimal.InexactFloat64()
		p.UnitPrice = &price
	}
	if v, ok := domain.ParseVelocity(r.Velocity); ok {
		p.Velocity = v
	} else {
		p.Velocity = domain.VelocityMedium
	}
	return p
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, category_id, current_stock, unit_price, velocity, updated_at
		FROM products
		WHERE id = $1
	`

	var row productRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ProductNotFound(id)
		}
		return nil, fmt.Errorf("error getting product %d: %w", id, err)
	}

	return row.toDomain(), nil
}

func (r *productRepository) ListProductIDsByVelocity(ctx context.Context, velocity domain.Velocity, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id
		FROM products
		WHERE velocity = $1
		ORDER BY updated_at DESC, id
		LIMIT $2
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, string(velocity), limit); err != nil {
		return nil, fmt.Errorf("error listing %s velocity products: %w", velocity, err)
	}

	return ids, nil
}
