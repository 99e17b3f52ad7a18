package messaging

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
	inventoryUC "github.com/cooper538/eshop-demo-sub000/usecase/inventory"
)

// OrderLine is one product line of an order event.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderPlacedMessage is the payload of the order service's "order placed"
// integration event.
type OrderPlacedMessage struct {
	OrderID string      `json:"order_id"`
	Lines   []OrderLine `json:"lines"`
}

// OrderCancelledMessage is the payload of the "order cancelled" event.
type OrderCancelledMessage struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// NewOrderPlacedConsumer reserves stock for newly placed orders.
func NewOrderPlacedConsumer(
	inventory *inventoryUC.UseCase,
	inbox repository.InboxRepository,
	executor *usecase.Executor,
	logger *zap.Logger,
) *IdempotentConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, uow repository.UnitOfWork, msg Message) error {
		var placed OrderPlacedMessage
		if err := json.Unmarshal(msg.Body, &placed); err != nil {
			return err
		}

		lines := make([]inventoryUC.ReserveLine, 0, len(placed.Lines))
		for _, line := range placed.Lines {
			lines = append(lines, inventoryUC.ReserveLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		result, err := inventory.Reserve(ctx, uow, placed.OrderID, lines)
		if err != nil {
			return err
		}
		if !result.Success {
			// A business refusal is still a processed message; committing
			// the ledger entry stops the broker from redelivering it.
			logger.Warn("reservation refused",
				zap.String("order_id", placed.OrderID),
				zap.String("code", string(result.ErrorCode)),
				zap.String("message", result.Message))
		}
		return nil
	}

	return NewIdempotentConsumer("order_placed_consumer", inbox, executor, handler, logger)
}

// NewOrderCancelledConsumer releases whatever the cancelled order still holds.
func NewOrderCancelledConsumer(
	inventory *inventoryUC.UseCase,
	inbox repository.InboxRepository,
	executor *usecase.Executor,
	logger *zap.Logger,
) *IdempotentConsumer {
	handler := func(ctx context.Context, uow repository.UnitOfWork, msg Message) error {
		var cancelled OrderCancelledMessage
		if err := json.Unmarshal(msg.Body, &cancelled); err != nil {
			return err
		}
		_, err := inventory.Release(ctx, uow, cancelled.OrderID)
		return err
	}

	return NewIdempotentConsumer("order_cancelled_consumer", inbox, executor, handler, logger)
}
