package domain

import "time"

// ReservationStatus is the lifecycle state of a stock reservation.
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
	ReservationExpired  ReservationStatus = "expired"
)

// Reservation holds a quantity of a product for an order until it is
// released, or until it expires past ExpiresAt. Released and Expired are
// terminal: a settled reservation never becomes active again.
type Reservation struct {
	ID         string            `json:"id"`
	OrderID    string            `json:"order_id"`
	ProductID  string            `json:"product_id"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	ReservedAt time.Time         `json:"reserved_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// IsActive reports whether the reservation still holds quantity.
func (r *Reservation) IsActive() bool {
	return r != nil && r.Status == ReservationActive
}

// IsStale reports whether an active reservation has outlived its TTL.
func (r *Reservation) IsStale(now time.Time) bool {
	return r.IsActive() && r.ExpiresAt.Before(now)
}

func (r *Reservation) markReleased() error {
	if !r.IsActive() {
		return ErrReservationSettled
	}
	r.Status = ReservationReleased
	return nil
}

func (r *Reservation) markExpired() error {
	if !r.IsActive() {
		return ErrReservationSettled
	}
	r.Status = ReservationExpired
	return nil
}
