package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

type stockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a Postgres-backed implementation of StockRepository.
func NewStockRepository(pool *pgxpool.Pool) repository.StockRepository {
	return &stockRepository{pool: pool}
}

func (r *stockRepository) GetByProductID(ctx context.Context, productID string) (*domain.Stock, error) {
	const query = `
	SELECT id, product_id, quantity, low_stock_threshold, version
	FROM stocks
	WHERE product_id = $1
	`
	row := r.pool.QueryRow(ctx, query, productID)
	return r.scanStock(ctx, row)
}

func (r *stockRepository) GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.Stock, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	const query = `
	SELECT id, product_id, quantity, low_stock_threshold, version
	FROM stocks
	WHERE product_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []*domain.Stock
	for rows.Next() {
		stock, err := r.scanStock(ctx, rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

func (r *stockRepository) FindByActiveOrder(ctx context.Context, orderID string) ([]*domain.Stock, error) {
	const query = `
	SELECT DISTINCT product_id
	FROM reservations
	WHERE order_id = $1 AND status = $2
	`
	rows, err := r.pool.Query(ctx, query, orderID, domain.ReservationActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var productIDs []string
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return nil, err
		}
		productIDs = append(productIDs, productID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.GetByProductIDs(ctx, productIDs)
}

func (r *stockRepository) FindExpiredActive(ctx context.Context, filter repository.ExpiredReservationFilter) ([]repository.ExpiredReservation, error) {
	// Walks the (status, expires_at) index, so stale rows come back cheap
	// and in expiry order.
	const query = `
	SELECT id, product_id
	FROM reservations
	WHERE status = $1 AND expires_at < $2
	ORDER BY expires_at
	LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, domain.ReservationActive, filter.Now, clampLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []repository.ExpiredReservation
	for rows.Next() {
		var row repository.ExpiredReservation
		if err := rows.Scan(&row.ReservationID, &row.ProductID); err != nil {
			return nil, err
		}
		stale = append(stale, row)
	}
	return stale, rows.Err()
}

func (r *stockRepository) scanStock(ctx context.Context, row interface {
	Scan(dest ...interface{}) error
}) (*domain.Stock, error) {
	var (
		id        string
		productID string
		quantity  int
		threshold int
		version   int
	)
	if err := row.Scan(&id, &productID, &quantity, &threshold, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStockNotFound
		}
		return nil, err
	}

	reservations, err := r.loadReservations(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.RehydrateStock(id, productID, quantity, threshold, version, reservations), nil
}

func (r *stockRepository) loadReservations(ctx context.Context, stockID string) ([]domain.Reservation, error) {
	const query = `
	SELECT id, order_id, product_id, quantity, status, reserved_at, expires_at
	FROM reservations
	WHERE stock_id = $1
	ORDER BY reserved_at
	`
	rows, err := r.pool.Query(ctx, query, stockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.OrderID,
			&res.ProductID,
			&res.Quantity,
			&res.Status,
			&res.ReservedAt,
			&res.ExpiresAt,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
