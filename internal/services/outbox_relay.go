package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/repository"
)

// EventPublisher hands an integration event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// RelayConfig controls the outbox drain.
type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
	Queue     string
}

// OutboxRelay drains committed outbox rows to the broker in sequence order,
// at least once. A failed publish stops the batch so ordering holds; the
// row stays pending and the next tick retries it.
type OutboxRelay struct {
	outbox    repository.OutboxRepository
	publisher EventPublisher
	monitor   ConnectionHealth
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       RelayConfig
}

func NewOutboxRelay(
	outbox repository.OutboxRepository,
	publisher EventPublisher,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg RelayConfig,
) *OutboxRelay {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Queue == "" {
		cfg.Queue = "inventory.events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	relay := &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = relay.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := relay.Drain(ctx); err != nil {
			relay.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return relay
}

// Start launches the cron scheduler.
func (r *OutboxRelay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (r *OutboxRelay) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("outbox relay stopped")
}

// Drain publishes one batch of pending rows.
func (r *OutboxRelay) Drain(ctx context.Context) error {
	if r.monitor != nil && !r.monitor.IsOnline() {
		r.logger.Debug("skipping outbox drain (offline)")
		return nil
	}

	rows, err := r.outbox.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]int64, 0, len(rows))
	for _, row := range rows {
		if err := r.publisher.Publish(ctx, r.cfg.Queue, row.ID, row.Payload); err != nil {
			r.logger.Warn("publish failed, leaving row pending",
				zap.Int64("sequence", row.Sequence),
				zap.String("event", row.EventName),
				zap.Error(err))
			break
		}
		published = append(published, row.Sequence)
	}

	if len(published) == 0 {
		return nil
	}
	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		// Rows stay pending and will be republished; consumers dedup via
		// their inbox ledger.
		return err
	}

	r.logger.Debug("outbox rows published", zap.Int("count", len(published)))
	return nil
}
