package repository

import (
	"context"

	"github.com/cooper538/eshop-demo-sub000/domain"
)

// ProductRepository exposes read access to catalog products.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}
