package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cooper538/eshop-demo-sub000/repository"
)

type inboxRepository struct {
	pool *pgxpool.Pool
}

// NewInboxRepository returns a Postgres-backed implementation of InboxRepository.
func NewInboxRepository(pool *pgxpool.Pool) repository.InboxRepository {
	return &inboxRepository{pool: pool}
}

func (r *inboxRepository) Seen(ctx context.Context, messageID, consumerType string) (bool, error) {
	const query = `
	SELECT EXISTS (
		SELECT 1 FROM inbox WHERE message_id = $1 AND consumer_type = $2
	)
	`
	var seen bool
	if err := r.pool.QueryRow(ctx, query, messageID, consumerType).Scan(&seen); err != nil {
		return false, err
	}
	return seen, nil
}
