package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cooper538/eshop-demo-sub000/domain"
)

type fakeExpirer struct {
	calls   int
	expired int
	err     error
}

func (e *fakeExpirer) ExpireStaleReservations(ctx context.Context, batchSize int) (int, error) {
	e.calls++
	return e.expired, e.err
}

type fakeHealth struct{ online bool }

func (h fakeHealth) IsOnline() bool { return h.online }

func TestSweep_ExpiresBatch(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	sweeper := NewExpirationSweeper(expirer, fakeHealth{online: true}, nil, SweeperConfig{
		Interval:  time.Minute,
		BatchSize: 50,
	})

	sweeper.Sweep(context.Background())
	assert.Equal(t, 1, expirer.calls)
}

func TestSweep_SkipsWhileOffline(t *testing.T) {
	expirer := &fakeExpirer{}
	sweeper := NewExpirationSweeper(expirer, fakeHealth{online: false}, nil, SweeperConfig{})

	sweeper.Sweep(context.Background())
	assert.Zero(t, expirer.calls)
}

func TestSweep_ConflictAbandonsTick(t *testing.T) {
	expirer := &fakeExpirer{err: domain.NewError(domain.ErrCodeConflict, "stock was modified concurrently")}
	sweeper := NewExpirationSweeper(expirer, fakeHealth{online: true}, nil, SweeperConfig{})

	// The tick is abandoned quietly; the next one retries the survivors.
	sweeper.Sweep(context.Background())
	assert.Equal(t, 1, expirer.calls)

	sweeper.Sweep(context.Background())
	assert.Equal(t, 2, expirer.calls)
}

func TestSweep_ErrorNeverStopsTheLoop(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("storage down")}
	sweeper := NewExpirationSweeper(expirer, fakeHealth{online: true}, nil, SweeperConfig{})

	sweeper.Sweep(context.Background())
	sweeper.Sweep(context.Background())
	assert.Equal(t, 2, expirer.calls)
}
