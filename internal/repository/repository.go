package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// ProductRepository resolves catalogue data for the forecasting engine
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProductIDsByVelocity(ctx context.Context, velocity domain.Velocity, limit int) ([]int64, error)
}

// MovementRepository reads stock movements
type MovementRepository interface {
	ListOutboundMovements(ctx context.Context, productID int64, since time.Time) ([]domain.Movement, error)
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
