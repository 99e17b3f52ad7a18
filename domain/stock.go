package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stock owns the quantity bookkeeping for one product. Available quantity is
// derived from the owned quantity minus every active reservation; it can
// legitimately drop to or below the low-stock threshold (that raises a
// warning event), but a reservation is never allowed to push it negative.
type Stock struct {
	AggregateRoot

	id                string
	productID         string
	quantity          int
	lowStockThreshold int
	reservations      []Reservation
}

// NewStock creates the stock aggregate for a product.
func NewStock(productID string, quantity, lowStockThreshold int, now time.Time) (*Stock, error) {
	if productID == "" {
		return nil, ErrInvalidPayload
	}
	if quantity < 0 || lowStockThreshold < 0 {
		return nil, ErrInvalidQuantity
	}

	s := &Stock{
		id:                uuid.NewString(),
		productID:         productID,
		quantity:          quantity,
		lowStockThreshold: lowStockThreshold,
	}
	s.bumpVersion()
	s.raise(StockCreated{
		StockID:   s.id,
		ProductID: productID,
		Quantity:  quantity,
		At:        now,
	})
	return s, nil
}

// RehydrateStock rebuilds a stock aggregate from persisted state. It raises
// no events and leaves the version untouched until the next mutation.
func RehydrateStock(id, productID string, quantity, lowStockThreshold, version int, reservations []Reservation) *Stock {
	s := &Stock{
		id:                id,
		productID:         productID,
		quantity:          quantity,
		lowStockThreshold: lowStockThreshold,
		reservations:      reservations,
	}
	s.restoreVersion(version)
	return s
}

func (s *Stock) EntityID() string  { return s.id }
func (s *Stock) ProductID() string { return s.productID }
func (s *Stock) Quantity() int     { return s.quantity }

// LowStockThreshold is the level at or below which a reserve raises
// LowStockWarning.
func (s *Stock) LowStockThreshold() int { return s.lowStockThreshold }

// AvailableQuantity is the owned quantity minus all active reservations.
// Released and expired reservations do not count.
func (s *Stock) AvailableQuantity() int {
	available := s.quantity
	for i := range s.reservations {
		if s.reservations[i].IsActive() {
			available -= s.reservations[i].Quantity
		}
	}
	return available
}

// Reservations returns a copy of the reservation list.
func (s *Stock) Reservations() []Reservation {
	out := make([]Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

// Reserve holds quantity for an order. A repeated call for an order that
// already has an active reservation on this stock is a no-op success and
// returns the existing reservation. Reserving more than the available
// quantity fails with ErrInsufficientStock and changes nothing.
func (s *Stock) Reserve(orderID string, quantity int, now time.Time, ttl time.Duration) (Reservation, error) {
	if orderID == "" {
		return Reservation{}, ErrInvalidPayload
	}
	if quantity <= 0 {
		return Reservation{}, ErrInvalidQuantity
	}

	for i := range s.reservations {
		if s.reservations[i].OrderID == orderID && s.reservations[i].IsActive() {
			return s.reservations[i], nil
		}
	}

	if quantity > s.AvailableQuantity() {
		return Reservation{}, ErrInsufficientStock
	}

	reservation := Reservation{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		ProductID:  s.productID,
		Quantity:   quantity,
		Status:     ReservationActive,
		ReservedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	s.reservations = append(s.reservations, reservation)
	s.bumpVersion()
	s.raise(StockReserved{
		ReservationID: reservation.ID,
		OrderID:       orderID,
		ProductID:     s.productID,
		Quantity:      quantity,
		ExpiresAt:     reservation.ExpiresAt,
		At:            now,
	})

	// One warning per call, no matter how far below the threshold we land.
	if available := s.AvailableQuantity(); available <= s.lowStockThreshold {
		s.raise(LowStockWarning{
			ProductID: s.productID,
			Available: available,
			Threshold: s.lowStockThreshold,
			At:        now,
		})
	}

	return reservation, nil
}

// Release frees every active reservation this stock holds for the order and
// returns the quantity given back. Releasing an order with no active
// reservation is a successful no-op.
func (s *Stock) Release(orderID string, now time.Time) int {
	released := 0
	for i := range s.reservations {
		if s.reservations[i].OrderID != orderID || !s.reservations[i].IsActive() {
			continue
		}
		if err := s.reservations[i].markReleased(); err != nil {
			continue
		}
		released += s.reservations[i].Quantity
	}
	if released == 0 {
		return 0
	}

	s.bumpVersion()
	s.raise(StockReleased{
		OrderID:          orderID,
		ProductID:        s.productID,
		QuantityReleased: released,
		At:               now,
	})
	return released
}

// Expire transitions one active reservation to expired and gives its
// quantity back. It returns false without error when the reservation is
// already settled; concurrent expiry attempts are expected and the caller
// only logs them.
func (s *Stock) Expire(reservationID string, now time.Time) (bool, error) {
	for i := range s.reservations {
		if s.reservations[i].ID != reservationID {
			continue
		}
		if err := s.reservations[i].markExpired(); err != nil {
			return false, nil
		}
		s.bumpVersion()
		s.raise(StockReservationExpired{
			ReservationID: reservationID,
			OrderID:       s.reservations[i].OrderID,
			ProductID:     s.productID,
			Quantity:      s.reservations[i].Quantity,
			At:            now,
		})
		return true, nil
	}
	return false, ErrReservationNotFound
}
