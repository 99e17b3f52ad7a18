package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

const uniqueViolation = "23505"

type inboxEntry struct {
	messageID    string
	consumerType string
}

type unitOfWork struct {
	pool   *pgxpool.Pool
	cache  repository.AvailabilityCache
	logger *zap.Logger

	tracked []domain.Aggregate
	outbox  []repository.OutboxMessage
	inbox   []inboxEntry
}

// NewUnitOfWork creates a unit of work committing through the given pool.
// The cache is optional; when present, committed stock levels are pushed
// into it best-effort after the transaction lands.
func NewUnitOfWork(pool *pgxpool.Pool, cache repository.AvailabilityCache, logger *zap.Logger) repository.UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &unitOfWork{pool: pool, cache: cache, logger: logger}
}

// NewUnitOfWorkFactory returns a factory handing out a fresh unit of work
// per inbound command or message.
func NewUnitOfWorkFactory(pool *pgxpool.Pool, cache repository.AvailabilityCache, logger *zap.Logger) func() repository.UnitOfWork {
	return func() repository.UnitOfWork {
		return NewUnitOfWork(pool, cache, logger)
	}
}

func (u *unitOfWork) Track(agg domain.Aggregate) {
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

func (u *unitOfWork) Tracked() []domain.Aggregate {
	return u.tracked
}

func (u *unitOfWork) StageOutbox(msg repository.OutboxMessage) {
	u.outbox = append(u.outbox, msg)
}

func (u *unitOfWork) StageInbox(messageID, consumerType string) {
	u.inbox = append(u.inbox, inboxEntry{messageID: messageID, consumerType: consumerType})
}

// Commit writes all tracked aggregates, outbox rows, and inbox ledger
// entries in a single transaction. A version mismatch on any aggregate
// aborts everything with a CONFLICT error naming the entity.
func (u *unitOfWork) Commit(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, agg := range u.tracked {
		switch a := agg.(type) {
		case *domain.Stock:
			if err := u.saveStock(ctx, tx, a); err != nil {
				return translateConstraint(err, "stock")
			}
		case *domain.Product:
			if err := u.saveProduct(ctx, tx, a); err != nil {
				return translateConstraint(err, "product")
			}
		default:
			return domain.NewError(domain.ErrCodeInternal, fmt.Sprintf("no persistence mapping for aggregate %T", agg))
		}
	}

	for _, msg := range u.outbox {
		if err := insertOutbox(ctx, tx, msg); err != nil {
			return err
		}
	}
	for _, entry := range u.inbox {
		if err := insertInbox(ctx, tx, entry); err != nil {
			return translateConstraint(err, "inbox message")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, agg := range u.tracked {
		agg.MarkPersisted()
	}
	u.refreshCache(ctx)
	return nil
}

func (u *unitOfWork) saveStock(ctx context.Context, tx pgx.Tx, stock *domain.Stock) error {
	if stock.PersistedVersion() == 0 {
		const insert = `
		INSERT INTO stocks (id, product_id, quantity, low_stock_threshold, version)
		VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, insert,
			stock.EntityID(),
			stock.ProductID(),
			stock.Quantity(),
			stock.LowStockThreshold(),
			stock.Version(),
		); err != nil {
			return err
		}
	} else if stock.Version() != stock.PersistedVersion() {
		const update = `
		UPDATE stocks
		SET quantity = $3,
			low_stock_threshold = $4,
			version = $5,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		`
		tag, err := tx.Exec(ctx, update,
			stock.EntityID(),
			stock.PersistedVersion(),
			stock.Quantity(),
			stock.LowStockThreshold(),
			stock.Version(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NewError(domain.ErrCodeConflict,
				fmt.Sprintf("stock for product %s was modified concurrently", stock.ProductID()))
		}
	}

	return u.saveReservations(ctx, tx, stock)
}

func (u *unitOfWork) saveReservations(ctx context.Context, tx pgx.Tx, stock *domain.Stock) error {
	const upsert = `
	INSERT INTO reservations (id, stock_id, order_id, product_id, quantity, status, reserved_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE
	SET status = EXCLUDED.status
	`
	for _, res := range stock.Reservations() {
		if _, err := tx.Exec(ctx, upsert,
			res.ID,
			stock.EntityID(),
			res.OrderID,
			res.ProductID,
			res.Quantity,
			res.Status,
			res.ReservedAt,
			res.ExpiresAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (u *unitOfWork) saveProduct(ctx context.Context, tx pgx.Tx, product *domain.Product) error {
	if product.PersistedVersion() == 0 {
		const insert = `
		INSERT INTO products (id, name, version, created_at)
		VALUES ($1, $2, $3, $4)
		`
		_, err := tx.Exec(ctx, insert,
			product.EntityID(),
			product.Name(),
			product.Version(),
			product.CreatedAt(),
		)
		return err
	}
	if product.Version() == product.PersistedVersion() {
		return nil
	}

	const update = `
	UPDATE products
	SET name = $3, version = $4, updated_at = NOW()
	WHERE id = $1 AND version = $2
	`
	tag, err := tx.Exec(ctx, update,
		product.EntityID(),
		product.PersistedVersion(),
		product.Name(),
		product.Version(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError(domain.ErrCodeConflict,
			fmt.Sprintf("product %s was modified concurrently", product.EntityID()))
	}
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, msg repository.OutboxMessage) error {
	const insert = `
	INSERT INTO outbox (id, stream, event_name, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, insert, msg.ID, msg.Stream, msg.EventName, msg.Payload, msg.OccurredAt)
	return err
}

func insertInbox(ctx context.Context, tx pgx.Tx, entry inboxEntry) error {
	const insert = `
	INSERT INTO inbox (message_id, consumer_type, processed_at)
	VALUES ($1, $2, NOW())
	`
	_, err := tx.Exec(ctx, insert, entry.messageID, entry.consumerType)
	return err
}

func (u *unitOfWork) refreshCache(ctx context.Context) {
	if u.cache == nil {
		return
	}
	for _, agg := range u.tracked {
		stock, ok := agg.(*domain.Stock)
		if !ok {
			continue
		}
		if err := u.cache.Set(ctx, stock.ProductID(), stock.AvailableQuantity()); err != nil {
			u.logger.Warn("availability cache refresh failed",
				zap.String("product_id", stock.ProductID()), zap.Error(err))
		}
	}
}

// translateConstraint maps a unique violation onto the CONFLICT taxonomy so
// callers see concurrent duplicates the same way they see version races.
func translateConstraint(err error, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.WrapError(domain.ErrCodeConflict, fmt.Sprintf("%s already exists", entity), err)
	}
	return err
}
