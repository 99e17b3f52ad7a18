package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
)

// RegisterEventHandlers wires the in-process handlers into the dispatcher.
// Called once at startup; the registry is static afterwards.
func (uc *UseCase) RegisterEventHandlers(dispatcher *usecase.EventDispatcher) {
	dispatcher.Register(domain.EventProductCreated, uc.onProductCreated)
	dispatcher.Register(domain.EventStockCreated, uc.stageIntegrationEvent)
	dispatcher.Register(domain.EventStockReserved, uc.stageIntegrationEvent)
	dispatcher.Register(domain.EventStockReleased, uc.stageIntegrationEvent)
	dispatcher.Register(domain.EventLowStockWarning, uc.onLowStock)
	dispatcher.Register(domain.EventStockReservationExpired, uc.stageIntegrationEvent)
}

// onProductCreated provisions the stock aggregate for a new product. The
// stock raises its own StockCreated event, which the next dispatch scan
// settles.
func (uc *UseCase) onProductCreated(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
	created, ok := event.(domain.ProductCreated)
	if !ok {
		return domain.NewError(domain.ErrCodeInternal, fmt.Sprintf("unexpected event payload %T", event))
	}

	stock, err := domain.NewStock(created.ProductID, created.InitialQuantity, created.LowStockThreshold, created.At)
	if err != nil {
		return err
	}
	uow.Track(stock)

	uc.logger.Info("stock provisioned for product",
		zap.String("product_id", created.ProductID),
		zap.Int("quantity", created.InitialQuantity))
	return uc.stageIntegrationEvent(ctx, uow, event)
}

func (uc *UseCase) onLowStock(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
	warning, ok := event.(domain.LowStockWarning)
	if ok {
		uc.logger.Warn("stock at or below threshold",
			zap.String("product_id", warning.ProductID),
			zap.Int("available", warning.Available),
			zap.Int("threshold", warning.Threshold))
	}
	return uc.stageIntegrationEvent(ctx, uow, event)
}

// stageIntegrationEvent turns a domain event into an outbox row committed
// with the aggregate state that produced it.
func (uc *UseCase) stageIntegrationEvent(_ context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "marshal integration event", err)
	}

	uow.StageOutbox(repository.OutboxMessage{
		ID:         uuid.NewString(),
		Stream:     streamOf(event),
		EventName:  event.EventName(),
		Payload:    payload,
		OccurredAt: event.OccurredAt(),
	})
	return nil
}

// streamOf picks the originating aggregate/stream key for outbox ordering.
func streamOf(event domain.DomainEvent) string {
	switch e := event.(type) {
	case domain.ProductCreated:
		return e.ProductID
	case domain.StockCreated:
		return e.ProductID
	case domain.StockReserved:
		return e.ProductID
	case domain.StockReleased:
		return e.ProductID
	case domain.LowStockWarning:
		return e.ProductID
	case domain.StockReservationExpired:
		return e.ProductID
	default:
		return event.EventName()
	}
}
