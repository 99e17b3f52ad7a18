package domain

import "time"

// Event names used as dispatch keys and outbox routing keys.
const (
	EventProductCreated          = "product.created"
	EventStockCreated            = "stock.created"
	EventStockReserved           = "stock.reserved"
	EventStockReleased           = "stock.released"
	EventLowStockWarning         = "stock.low"
	EventStockReservationExpired = "stock.reservation_expired"
)

// DomainEvent is an immutable record of something that happened inside an
// aggregate. Events live only between the mutation that raised them and the
// dispatch loop that drains them; they are never persisted as their own rows.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// ProductCreated is raised by the Product factory. Its handler provisions
// the stock aggregate for the new product.
type ProductCreated struct {
	ProductID         string `json:"product_id"`
	Name              string `json:"name"`
	InitialQuantity   int    `json:"initial_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`

	At time.Time `json:"occurred_at"`
}

func (e ProductCreated) EventName() string     { return EventProductCreated }
func (e ProductCreated) OccurredAt() time.Time { return e.At }

// StockCreated is raised by the Stock factory.
type StockCreated struct {
	StockID   string `json:"stock_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`

	At time.Time `json:"occurred_at"`
}

func (e StockCreated) EventName() string     { return EventStockCreated }
func (e StockCreated) OccurredAt() time.Time { return e.At }

// StockReserved is raised once per successful reservation.
type StockReserved struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	ExpiresAt     time.Time `json:"expires_at"`

	At time.Time `json:"occurred_at"`
}

func (e StockReserved) EventName() string     { return EventStockReserved }
func (e StockReserved) OccurredAt() time.Time { return e.At }

// StockReleased is raised when at least one active reservation of an order
// is released back to available stock.
type StockReleased struct {
	OrderID          string `json:"order_id"`
	ProductID        string `json:"product_id"`
	QuantityReleased int    `json:"quantity_released"`

	At time.Time `json:"occurred_at"`
}

func (e StockReleased) EventName() string     { return EventStockReleased }
func (e StockReleased) OccurredAt() time.Time { return e.At }

// LowStockWarning is raised at most once per reserve call when the resulting
// available quantity is at or below the configured threshold.
type LowStockWarning struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`

	At time.Time `json:"occurred_at"`
}

func (e LowStockWarning) EventName() string     { return EventLowStockWarning }
func (e LowStockWarning) OccurredAt() time.Time { return e.At }

// StockReservationExpired is raised when the sweeper expires a stale
// reservation.
type StockReservationExpired struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`

	At time.Time `json:"occurred_at"`
}

func (e StockReservationExpired) EventName() string     { return EventStockReservationExpired }
func (e StockReservationExpired) OccurredAt() time.Time { return e.At }
