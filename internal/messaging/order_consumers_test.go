package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
	inventoryUC "github.com/cooper538/eshop-demo-sub000/usecase/inventory"
)

type singleStockRepo struct {
	stock *domain.Stock
}

func (r *singleStockRepo) GetByProductID(ctx context.Context, productID string) (*domain.Stock, error) {
	if r.stock == nil || r.stock.ProductID() != productID {
		return nil, domain.ErrStockNotFound
	}
	return r.stock, nil
}

func (r *singleStockRepo) GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.Stock, error) {
	var out []*domain.Stock
	for _, id := range productIDs {
		if stock, err := r.GetByProductID(ctx, id); err == nil {
			out = append(out, stock)
		}
	}
	return out, nil
}

func (r *singleStockRepo) FindByActiveOrder(ctx context.Context, orderID string) ([]*domain.Stock, error) {
	if r.stock == nil {
		return nil, nil
	}
	for _, res := range r.stock.Reservations() {
		if res.OrderID == orderID && res.IsActive() {
			return []*domain.Stock{r.stock}, nil
		}
	}
	return nil, nil
}

func (r *singleStockRepo) FindExpiredActive(ctx context.Context, filter repository.ExpiredReservationFilter) ([]repository.ExpiredReservation, error) {
	return nil, nil
}

func newOrderTestRig(t *testing.T, stock *domain.Stock) (*inventoryUC.UseCase, *fakeInbox, *usecase.Executor) {
	t.Helper()
	inbox := newFakeInbox()
	executor := newLedgerExecutor(inbox)
	uc := inventoryUC.New(&singleStockRepo{stock: stock}, nil, nil, executor, nil, 10*time.Minute, nil)
	return uc, inbox, executor
}

func newOrderTestStock(t *testing.T) *domain.Stock {
	t.Helper()
	stock, err := domain.NewStock("product-1", 10, 0, time.Now().UTC())
	require.NoError(t, err)
	stock.DrainEvents()
	return stock
}

func TestOrderPlacedConsumer_ReservesStock(t *testing.T) {
	stock := newOrderTestStock(t)
	uc, inbox, executor := newOrderTestRig(t, stock)

	consumer := NewOrderPlacedConsumer(uc, inbox, executor, nil)
	body := []byte(`{"order_id":"order-a","lines":[{"product_id":"product-1","quantity":4}]}`)

	require.NoError(t, consumer.Consume(context.Background(), Message{ID: "msg-1", Body: body}))
	assert.Equal(t, 6, stock.AvailableQuantity())

	// Redelivery neither double-reserves nor errors.
	require.NoError(t, consumer.Consume(context.Background(), Message{ID: "msg-1", Body: body}))
	assert.Equal(t, 6, stock.AvailableQuantity())
}

func TestOrderPlacedConsumer_BusinessRefusalStillAcks(t *testing.T) {
	stock := newOrderTestStock(t)
	uc, inbox, executor := newOrderTestRig(t, stock)

	consumer := NewOrderPlacedConsumer(uc, inbox, executor, nil)
	body := []byte(`{"order_id":"order-a","lines":[{"product_id":"product-1","quantity":99}]}`)

	// Insufficient stock is a settled outcome: the message is recorded as
	// processed so the broker stops redelivering it.
	require.NoError(t, consumer.Consume(context.Background(), Message{ID: "msg-1", Body: body}))
	assert.Equal(t, 10, stock.AvailableQuantity())
	assert.NotEmpty(t, inbox.entries)
}

func TestOrderPlacedConsumer_MalformedPayloadFails(t *testing.T) {
	stock := newOrderTestStock(t)
	uc, inbox, executor := newOrderTestRig(t, stock)

	consumer := NewOrderPlacedConsumer(uc, inbox, executor, nil)

	err := consumer.Consume(context.Background(), Message{ID: "msg-1", Body: []byte(`{broken`)})
	assert.Error(t, err)
	assert.Empty(t, inbox.entries)
}

func TestOrderCancelledConsumer_ReleasesStock(t *testing.T) {
	stock := newOrderTestStock(t)
	uc, inbox, executor := newOrderTestRig(t, stock)

	_, err := stock.Reserve("order-a", 4, time.Now().UTC(), 10*time.Minute)
	require.NoError(t, err)
	stock.DrainEvents()
	require.Equal(t, 6, stock.AvailableQuantity())

	consumer := NewOrderCancelledConsumer(uc, inbox, executor, nil)
	body := []byte(`{"order_id":"order-a","reason":"customer cancelled"}`)

	require.NoError(t, consumer.Consume(context.Background(), Message{ID: "msg-2", Body: body}))
	assert.Equal(t, 10, stock.AvailableQuantity())
}
