package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

// maxDispatchIterations bounds the drain-and-rescan loop. Hitting the bound
// means handlers keep raising events for each other in a cycle, which is a
// programmer error, not a runtime condition to recover from.
const maxDispatchIterations = 10

// ErrDispatchCycle signals a cyclic event dependency between handlers.
var ErrDispatchCycle = domain.NewError(domain.ErrCodeInternal, "domain event dispatch exceeded the iteration bound")

// EventHandler reacts to one domain event inside the current unit of work.
// Handlers may mutate further aggregates and raise more events; anything
// they track is picked up by the next scan.
type EventHandler func(ctx context.Context, uow repository.UnitOfWork, event domain.DomainEvent) error

// EventDispatcher routes domain events to handlers registered per event
// name. The registry is built once at startup; Dispatch only reads it.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *zap.Logger
}

func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// Register appends a handler for the given event name. Handlers run in
// registration order.
func (d *EventDispatcher) Register(eventName string, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Dispatch settles every pending domain event of the unit of work. Each
// iteration drains all tracked aggregates (clearing their lists before any
// handler runs), invokes the registered handlers, and rescans, because
// handlers may have raised further events. Events of one aggregate are
// delivered in the order they were raised.
func (d *EventDispatcher) Dispatch(ctx context.Context, uow repository.UnitOfWork) error {
	for iteration := 0; ; iteration++ {
		if iteration >= maxDispatchIterations {
			return ErrDispatchCycle
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []domain.DomainEvent
		for _, agg := range uow.Tracked() {
			if agg.HasPendingEvents() {
				batch = append(batch, agg.DrainEvents()...)
			}
		}
		if len(batch) == 0 {
			return nil
		}

		for _, event := range batch {
			d.mu.RLock()
			handlers := d.handlers[event.EventName()]
			d.mu.RUnlock()

			if len(handlers) == 0 {
				d.logger.Debug("no handlers for domain event", zap.String("event", event.EventName()))
				continue
			}
			for _, handler := range handlers {
				if err := handler(ctx, uow, event); err != nil {
					return err
				}
			}
		}
	}
}
