package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a Postgres-backed implementation of ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `
	SELECT id, name, version, created_at
	FROM products
	WHERE id = $1
	`
	var (
		productID string
		name      string
		version   int
		createdAt time.Time
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(&productID, &name, &version, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return domain.RehydrateProduct(productID, name, version, createdAt), nil
}
