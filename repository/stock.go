package repository

import (
	"context"
	"time"

	"github.com/cooper538/eshop-demo-sub000/domain"
)

// ExpiredReservationFilter bounds one sweeper scan. Results come back in
// (status, expires_at) index order so the scan stays cheap.
type ExpiredReservationFilter struct {
	Now   time.Time
	Limit int
}

// ExpiredReservation is one row from the sweeper scan; the owning stock is
// bulk-loaded separately.
type ExpiredReservation struct {
	ReservationID string
	ProductID     string
}

// StockRepository exposes read access to stock aggregates. All writes go
// through the unit of work so they commit atomically with their events.
type StockRepository interface {
	GetByProductID(ctx context.Context, productID string) (*domain.Stock, error)
	GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.Stock, error)
	FindByActiveOrder(ctx context.Context, orderID string) ([]*domain.Stock, error)
	FindExpiredActive(ctx context.Context, filter ExpiredReservationFilter) ([]ExpiredReservation, error)
}
