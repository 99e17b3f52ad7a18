package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooper538/eshop-demo-sub000/repository"
)

type fakeOutbox struct {
	rows      []repository.OutboxRow
	published []int64
	fetchErr  error
	markErr   error
}

func (o *fakeOutbox) FetchPending(ctx context.Context, limit int) ([]repository.OutboxRow, error) {
	if o.fetchErr != nil {
		return nil, o.fetchErr
	}
	if limit < len(o.rows) {
		return o.rows[:limit], nil
	}
	return o.rows, nil
}

func (o *fakeOutbox) MarkPublished(ctx context.Context, sequences []int64) error {
	if o.markErr != nil {
		return o.markErr
	}
	o.published = append(o.published, sequences...)
	return nil
}

type fakePublisher struct {
	sent    []string
	failOn  string
	failErr error
}

func (p *fakePublisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	if messageID == p.failOn {
		return p.failErr
	}
	p.sent = append(p.sent, messageID)
	return nil
}

func outboxRow(seq int64, id string) repository.OutboxRow {
	return repository.OutboxRow{
		Sequence: seq,
		OutboxMessage: repository.OutboxMessage{
			ID:        id,
			Stream:    "product-1",
			EventName: "stock.reserved",
			Payload:   []byte(`{}`),
		},
	}
}

func newTestRelay(outbox *fakeOutbox, publisher *fakePublisher) *OutboxRelay {
	return NewOutboxRelay(outbox, publisher, fakeHealth{online: true}, nil, RelayConfig{})
}

func TestDrain_PublishesInSequenceOrder(t *testing.T) {
	outbox := &fakeOutbox{rows: []repository.OutboxRow{
		outboxRow(1, "msg-1"),
		outboxRow(2, "msg-2"),
		outboxRow(3, "msg-3"),
	}}
	publisher := &fakePublisher{}
	relay := newTestRelay(outbox, publisher)

	require.NoError(t, relay.Drain(context.Background()))
	assert.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, publisher.sent)
	assert.Equal(t, []int64{1, 2, 3}, outbox.published)
}

func TestDrain_PublishFailureStopsBatch(t *testing.T) {
	outbox := &fakeOutbox{rows: []repository.OutboxRow{
		outboxRow(1, "msg-1"),
		outboxRow(2, "msg-2"),
		outboxRow(3, "msg-3"),
	}}
	publisher := &fakePublisher{failOn: "msg-2", failErr: errors.New("broker gone")}
	relay := newTestRelay(outbox, publisher)

	// Rows after the failure stay pending so the queue never reorders.
	require.NoError(t, relay.Drain(context.Background()))
	assert.Equal(t, []string{"msg-1"}, publisher.sent)
	assert.Equal(t, []int64{1}, outbox.published)
}

func TestDrain_NothingPending(t *testing.T) {
	outbox := &fakeOutbox{}
	publisher := &fakePublisher{}
	relay := newTestRelay(outbox, publisher)

	require.NoError(t, relay.Drain(context.Background()))
	assert.Empty(t, publisher.sent)
}

func TestDrain_SkipsWhileOffline(t *testing.T) {
	outbox := &fakeOutbox{rows: []repository.OutboxRow{outboxRow(1, "msg-1")}}
	publisher := &fakePublisher{}
	relay := NewOutboxRelay(outbox, publisher, fakeHealth{online: false}, nil, RelayConfig{})

	require.NoError(t, relay.Drain(context.Background()))
	assert.Empty(t, publisher.sent)
}

func TestDrain_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("query failed")
	outbox := &fakeOutbox{fetchErr: boom}
	relay := newTestRelay(outbox, &fakePublisher{})

	assert.ErrorIs(t, relay.Drain(context.Background()), boom)
}
