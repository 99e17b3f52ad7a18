package repository

import (
	"context"

	"github.com/cooper538/eshop-demo-sub000/domain"
)

// UnitOfWork collects everything one inbound command or message wants to
// persist: mutated aggregates, staged outbox rows, and the inbox ledger
// entry guarding the work. Commit applies all of it in one atomic operation
// or none of it; a stale aggregate version surfaces as a CONFLICT domain
// error naming the entity.
type UnitOfWork interface {
	// Track registers an aggregate so its changes are persisted at commit
	// and its pending events are visible to the dispatch loop. Tracking the
	// same aggregate twice is harmless.
	Track(agg domain.Aggregate)
	Tracked() []domain.Aggregate

	// StageOutbox records an integration event to be written in the same
	// transaction as the tracked aggregates.
	StageOutbox(msg OutboxMessage)

	// StageInbox records a processed-message ledger entry for the
	// idempotent consumer, committed together with the side effects.
	StageInbox(messageID, consumerType string)

	Commit(ctx context.Context) error
}

// NewVolatileUnitOfWork returns a unit of work that tracks aggregates and
// staged rows in memory and discards everything on commit. It backs read
// paths and degraded mode, where the pipeline shape is wanted without
// durability.
func NewVolatileUnitOfWork() UnitOfWork {
	return &volatileUnitOfWork{}
}

type inboxEntry struct {
	messageID    string
	consumerType string
}

type volatileUnitOfWork struct {
	tracked []domain.Aggregate
	outbox  []OutboxMessage
	inbox   []inboxEntry
}

func (u *volatileUnitOfWork) Track(agg domain.Aggregate) {
	if agg == nil {
		return
	}
	for _, existing := range u.tracked {
		if existing == agg {
			return
		}
	}
	u.tracked = append(u.tracked, agg)
}

func (u *volatileUnitOfWork) Tracked() []domain.Aggregate {
	return u.tracked
}

func (u *volatileUnitOfWork) StageOutbox(msg OutboxMessage) {
	u.outbox = append(u.outbox, msg)
}

func (u *volatileUnitOfWork) StageInbox(messageID, consumerType string) {
	u.inbox = append(u.inbox, inboxEntry{messageID: messageID, consumerType: consumerType})
}

func (u *volatileUnitOfWork) Commit(ctx context.Context) error {
	return ctx.Err()
}
