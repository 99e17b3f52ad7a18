package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cooper538/eshop-demo-sub000/repository"
)

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns a Postgres-backed implementation of OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) repository.OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]repository.OutboxRow, error) {
	const query = `
	SELECT sequence, id, stream, event_name, payload, occurred_at
	FROM outbox
	WHERE published_at IS NULL
	ORDER BY sequence
	LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []repository.OutboxRow
	for rows.Next() {
		var row repository.OutboxRow
		if err := rows.Scan(
			&row.Sequence,
			&row.ID,
			&row.Stream,
			&row.EventName,
			&row.Payload,
			&row.OccurredAt,
		); err != nil {
			return nil, err
		}
		pending = append(pending, row)
	}
	return pending, rows.Err()
}

func (r *outboxRepository) MarkPublished(ctx context.Context, sequences []int64) error {
	if len(sequences) == 0 {
		return nil
	}
	const update = `
	UPDATE outbox
	SET published_at = NOW()
	WHERE sequence = ANY($1)
	`
	_, err := r.pool.Exec(ctx, update, sequences)
	return err
}
