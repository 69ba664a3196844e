package repository

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

type categoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := make([]domain.Category, 0)
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return categories, nil
}
