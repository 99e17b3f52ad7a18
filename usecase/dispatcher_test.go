package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStockWithEvents(t *testing.T) *domain.Stock {
	t.Helper()
	stock, err := domain.NewStock("product-1", 100, 0, testNow)
	require.NoError(t, err)
	return stock
}

func TestDispatch_NoPendingEvents(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)
	uow := repository.NewVolatileUnitOfWork()

	require.NoError(t, dispatcher.Dispatch(context.Background(), uow))
}

func TestDispatch_DeliversInRaiseOrder(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)

	var delivered []string
	record := func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
		delivered = append(delivered, event.EventName())
		return nil
	}
	dispatcher.Register(domain.EventStockReserved, record)
	dispatcher.Register(domain.EventLowStockWarning, record)

	// Crossing the threshold raises StockReserved then LowStockWarning.
	stock, err := domain.NewStock("product-1", 10, 5, testNow)
	require.NoError(t, err)
	stock.DrainEvents()
	_, err = stock.Reserve("order-a", 8, testNow, time.Minute)
	require.NoError(t, err)

	uow := repository.NewVolatileUnitOfWork()
	uow.Track(stock)

	require.NoError(t, dispatcher.Dispatch(context.Background(), uow))
	assert.Equal(t, []string{domain.EventStockReserved, domain.EventLowStockWarning}, delivered)
	assert.False(t, stock.HasPendingEvents())
}

func TestDispatch_CascadeSettles(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)

	// ProductCreated provisions a stock aggregate, which raises StockCreated;
	// the rescan must pick the second generation up.
	var created []string
	dispatcher.Register(domain.EventProductCreated, func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
		payload := event.(domain.ProductCreated)
		stock, err := domain.NewStock(payload.ProductID, payload.InitialQuantity, payload.LowStockThreshold, payload.At)
		if err != nil {
			return err
		}
		uow.Track(stock)
		return nil
	})
	dispatcher.Register(domain.EventStockCreated, func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
		created = append(created, event.(domain.StockCreated).ProductID)
		return nil
	})

	product, err := domain.NewProduct("widget", 10, 2, testNow)
	require.NoError(t, err)

	uow := repository.NewVolatileUnitOfWork()
	uow.Track(product)

	require.NoError(t, dispatcher.Dispatch(context.Background(), uow))
	assert.Equal(t, []string{product.EntityID()}, created)
	assert.Len(t, uow.Tracked(), 2)
	for _, agg := range uow.Tracked() {
		assert.False(t, agg.HasPendingEvents())
	}
}

func TestDispatch_CycleHitsIterationBound(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)

	stock := newStockWithEvents(t)
	orders := 0
	dispatcher.Register(domain.EventStockReserved, func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
		orders++
		_, err := stock.Reserve(fmt.Sprintf("order-%d", orders), 1, testNow, time.Minute)
		return err
	})

	stock.DrainEvents()
	_, err := stock.Reserve("order-0", 1, testNow, time.Minute)
	require.NoError(t, err)

	uow := repository.NewVolatileUnitOfWork()
	uow.Track(stock)

	err = dispatcher.Dispatch(context.Background(), uow)
	assert.ErrorIs(t, err, ErrDispatchCycle)
}

func TestDispatch_HandlerErrorPropagates(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)
	boom := errors.New("handler exploded")
	dispatcher.Register(domain.EventStockCreated, func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
		return boom
	})

	uow := repository.NewVolatileUnitOfWork()
	uow.Track(newStockWithEvents(t))

	assert.ErrorIs(t, dispatcher.Dispatch(context.Background(), uow), boom)
}

func TestDispatch_UnhandledEventIsDropped(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)

	stock := newStockWithEvents(t)
	uow := repository.NewVolatileUnitOfWork()
	uow.Track(stock)

	require.NoError(t, dispatcher.Dispatch(context.Background(), uow))
	assert.False(t, stock.HasPendingEvents())
}

func TestDispatch_ContextCancelled(t *testing.T) {
	dispatcher := NewEventDispatcher(nil)

	uow := repository.NewVolatileUnitOfWork()
	uow.Track(newStockWithEvents(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, dispatcher.Dispatch(ctx, uow), context.Canceled)
}
