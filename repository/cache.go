package repository

import "context"

// AvailabilityCache is a best-effort read cache of available quantities.
// The unit of work refreshes it after a successful commit; readers fall
// back to the repository on a miss.
type AvailabilityCache interface {
	Get(ctx context.Context, productID string) (available int, ok bool, err error)
	Set(ctx context.Context, productID string, available int) error
}
