package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ReservationExpirer is the sweeper's entry point into the inventory core.
type ReservationExpirer interface {
	ExpireStaleReservations(ctx context.Context, batchSize int) (int, error)
}

// SweeperConfig controls how frequently stale reservations are swept.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// ExpirationSweeper periodically releases reservations that outlived their
// TTL. A failed run never stops the loop; it is logged and the next tick
// runs on schedule.
type ExpirationSweeper struct {
	expirer ReservationExpirer
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     SweeperConfig
}

func NewExpirationSweeper(
	expirer ReservationExpirer,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg SweeperConfig,
) *ExpirationSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sweeper := &ExpirationSweeper{
		expirer: expirer,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = sweeper.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		sweeper.Sweep(ctx)
	})

	return sweeper
}

// Start launches the cron scheduler.
func (s *ExpirationSweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("expiration sweeper started", zap.Duration("interval", s.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (s *ExpirationSweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("expiration sweeper stopped")
}

// Sweep runs one bounded batch. A concurrency conflict means another
// process expired overlapping rows first, so the whole batch is abandoned
// until the next tick rather than partially retried.
func (s *ExpirationSweeper) Sweep(ctx context.Context) {
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Debug("skipping expiration sweep (offline)")
		return
	}

	expired, err := s.expirer.ExpireStaleReservations(ctx, s.cfg.BatchSize)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			s.logger.Warn("expiration batch abandoned after concurrent update", zap.Error(err))
			return
		}
		s.logger.Error("expiration sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expired stale reservations", zap.Int("count", expired))
	}
}
