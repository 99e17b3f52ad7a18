package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
)

// Message is one inbound broker message, normalized away from the transport.
type Message struct {
	ID   string
	Body []byte
}

// HandlerFunc is the type-specific processing logic of one consumer. Its
// side effects join the consumer's unit of work, so they commit together
// with the inbox ledger entry or not at all.
type HandlerFunc func(ctx context.Context, uow repository.UnitOfWork, msg Message) error

// IdempotentConsumer wraps a handler with inbox dedup. Each consumer type
// keeps its own ledger: two different consumer types processing the same
// message are independent.
type IdempotentConsumer struct {
	consumerType string
	inbox        repository.InboxRepository
	executor     *usecase.Executor
	handler      HandlerFunc
	logger       *zap.Logger
}

func NewIdempotentConsumer(
	consumerType string,
	inbox repository.InboxRepository,
	executor *usecase.Executor,
	handler HandlerFunc,
	logger *zap.Logger,
) *IdempotentConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotentConsumer{
		consumerType: consumerType,
		inbox:        inbox,
		executor:     executor,
		handler:      handler,
		logger:       logger.With(zap.String("consumer", consumerType)),
	}
}

// ConsumerType identifies this consumer in the inbox ledger.
func (c *IdempotentConsumer) ConsumerType() string {
	return c.consumerType
}

// Consume processes one message exactly once per consumer type. A message
// already in the ledger is acknowledged without side effects. Otherwise the
// handler runs inside a unit of work together with the ledger insert; any
// error leaves nothing committed, so the broker's redelivery re-enters here
// and reprocesses from scratch.
func (c *IdempotentConsumer) Consume(ctx context.Context, msg Message) error {
	seen, err := c.inbox.Seen(ctx, msg.ID, c.consumerType)
	if err != nil {
		return err
	}
	if seen {
		c.logger.Info("message already processed, skipping", zap.String("message_id", msg.ID))
		return nil
	}

	return c.executor.Execute(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		if err := c.handler(ctx, uow, msg); err != nil {
			return err
		}
		uow.StageInbox(msg.ID, c.consumerType)
		return nil
	})
}
