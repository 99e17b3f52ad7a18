package repository

import (
	"context"
	"time"
)

// OutboxMessage is an integration event staged for durable delivery. It is
// written in the same transaction as the aggregate state it describes.
type OutboxMessage struct {
	ID         string
	Stream     string
	EventName  string
	Payload    []byte
	OccurredAt time.Time
}

// OutboxRow is a persisted outbox message. Sequence is assigned by storage
// and is monotonically increasing, so the relay can publish in order.
type OutboxRow struct {
	Sequence int64
	OutboxMessage
}

// OutboxRepository gives the relay access to pending rows. Inserts happen
// inside the unit of work, never here.
type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, sequences []int64) error
}
