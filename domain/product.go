package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog entry for a sellable item. Creating one raises
// ProductCreated, whose handler provisions the matching stock aggregate.
type Product struct {
	AggregateRoot

	id        string
	name      string
	createdAt time.Time
}

// NewProduct creates a product and announces it to the rest of the system.
// The initial quantity and threshold travel on the event so the stock
// handler can provision inventory without a second lookup.
func NewProduct(name string, initialQuantity, lowStockThreshold int, now time.Time) (*Product, error) {
	if name == "" {
		return nil, ErrInvalidPayload
	}
	if initialQuantity < 0 || lowStockThreshold < 0 {
		return nil, ErrInvalidQuantity
	}

	p := &Product{
		id:        uuid.NewString(),
		name:      name,
		createdAt: now,
	}
	p.bumpVersion()
	p.raise(ProductCreated{
		ProductID:         p.id,
		Name:              name,
		InitialQuantity:   initialQuantity,
		LowStockThreshold: lowStockThreshold,
		At:                now,
	})
	return p, nil
}

// RehydrateProduct rebuilds a product from persisted state.
func RehydrateProduct(id, name string, version int, createdAt time.Time) *Product {
	p := &Product{
		id:        id,
		name:      name,
		createdAt: createdAt,
	}
	p.restoreVersion(version)
	return p
}

func (p *Product) EntityID() string     { return p.id }
func (p *Product) Name() string         { return p.name }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
