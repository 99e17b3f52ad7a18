package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
)

type fakeInbox struct {
	entries map[string]bool
}

func newFakeInbox() *fakeInbox { return &fakeInbox{entries: make(map[string]bool)} }

func (i *fakeInbox) Seen(ctx context.Context, messageID, consumerType string) (bool, error) {
	return i.entries[messageID+"|"+consumerType], nil
}

// ledgerUnitOfWork applies staged inbox entries to the fake ledger on commit,
// mirroring the transactional coupling of the real implementation.
type ledgerUnitOfWork struct {
	repository.UnitOfWork

	inbox  *fakeInbox
	staged [][2]string
}

func (u *ledgerUnitOfWork) StageInbox(messageID, consumerType string) {
	u.staged = append(u.staged, [2]string{messageID, consumerType})
}

func (u *ledgerUnitOfWork) Commit(ctx context.Context) error {
	for _, entry := range u.staged {
		u.inbox.entries[entry[0]+"|"+entry[1]] = true
	}
	return nil
}

func newLedgerExecutor(inbox *fakeInbox) *usecase.Executor {
	factory := func() repository.UnitOfWork {
		return &ledgerUnitOfWork{UnitOfWork: repository.NewVolatileUnitOfWork(), inbox: inbox}
	}
	return usecase.NewExecutor(factory, usecase.NewEventDispatcher(nil), nil)
}

func TestConsume_ProcessesMessageOncePerType(t *testing.T) {
	inbox := newFakeInbox()
	executor := newLedgerExecutor(inbox)

	processed := 0
	consumer := NewIdempotentConsumer("test_consumer", inbox, executor, func(ctx context.Context, uow repository.UnitOfWork, msg Message) error {
		processed++
		return nil
	}, nil)

	msg := Message{ID: "msg-1", Body: []byte(`{}`)}
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Equal(t, 1, processed)

	// The redelivery is acknowledged without re-running the handler.
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Equal(t, 1, processed)
}

func TestConsume_HandlerErrorLeavesNoLedgerEntry(t *testing.T) {
	inbox := newFakeInbox()
	executor := newLedgerExecutor(inbox)

	boom := errors.New("downstream unavailable")
	attempts := 0
	consumer := NewIdempotentConsumer("test_consumer", inbox, executor, func(ctx context.Context, uow repository.UnitOfWork, msg Message) error {
		attempts++
		if attempts == 1 {
			return boom
		}
		return nil
	}, nil)

	msg := Message{ID: "msg-1", Body: []byte(`{}`)}
	assert.ErrorIs(t, consumer.Consume(context.Background(), msg), boom)
	assert.Empty(t, inbox.entries)

	// The broker redelivers; this time the handler succeeds and the ledger
	// entry commits with it.
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Equal(t, 2, attempts)

	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Equal(t, 2, attempts)
}

func TestConsume_ConsumerTypesKeepSeparateLedgers(t *testing.T) {
	inbox := newFakeInbox()
	executor := newLedgerExecutor(inbox)

	var handled []string
	handler := func(name string) HandlerFunc {
		return func(ctx context.Context, uow repository.UnitOfWork, msg Message) error {
			handled = append(handled, name)
			return nil
		}
	}

	first := NewIdempotentConsumer("first_consumer", inbox, executor, handler("first"), nil)
	second := NewIdempotentConsumer("second_consumer", inbox, executor, handler("second"), nil)

	msg := Message{ID: "msg-1", Body: []byte(`{}`)}
	require.NoError(t, first.Consume(context.Background(), msg))
	require.NoError(t, second.Consume(context.Background(), msg))

	assert.Equal(t, []string{"first", "second"}, handled)
}
