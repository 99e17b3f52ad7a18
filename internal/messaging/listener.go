package messaging

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/internal/infrastructure/rabbitmq"
)

// Listener pumps deliveries from one queue into an idempotent consumer,
// acking on success and requeueing on failure.
type Listener struct {
	client   *rabbitmq.Client
	queue    string
	consumer *IdempotentConsumer
	logger   *zap.Logger
}

func NewListener(client *rabbitmq.Client, queue string, consumer *IdempotentConsumer, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		client:   client,
		queue:    queue,
		consumer: consumer,
		logger:   logger.With(zap.String("queue", queue)),
	}
}

// Start declares the queue and consumes it until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.client.DeclareQueue(l.queue); err != nil {
		return err
	}
	deliveries, err := l.client.Consume(l.queue)
	if err != nil {
		return err
	}

	go l.pump(ctx, deliveries)
	return nil
}

func (l *Listener) pump(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				l.logger.Warn("delivery channel closed")
				return
			}
			l.handle(ctx, delivery)
		}
	}
}

func (l *Listener) handle(ctx context.Context, delivery amqp.Delivery) {
	messageID := delivery.MessageId
	if messageID == "" {
		// Broker messages without an id cannot be deduplicated; assign one
		// so at least this delivery attempt is traceable.
		messageID = uuid.NewString()
		l.logger.Warn("delivery without message id", zap.String("assigned_id", messageID))
	}

	err := l.consumer.Consume(ctx, Message{ID: messageID, Body: delivery.Body})
	if err != nil {
		l.logger.Error("message processing failed, requeueing",
			zap.String("message_id", messageID), zap.Error(err))
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}
