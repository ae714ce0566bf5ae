package database

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/maps-review-scraper/internal/events"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

func pendingEvents() []*OutboxEvent {
	return []*OutboxEvent{
		{
			ID:            uuid.New(),
			AggregateType: events.AggregateScrapeRun,
			AggregateID:   "job-1",
			EventType:     events.EventReviewsCollected,
			Payload:       json.RawMessage(`{"place":"Tartine","reviews":42}`),
			TargetStream:  events.DefaultStream,
		},
		{
			ID:            uuid.New(),
			AggregateType: events.AggregateScrapeRun,
			AggregateID:   "job-2",
			EventType:     events.EventCollectionFailed,
			Payload:       json.RawMessage(`{"place":"Nowhere","code":"place_not_found"}`),
			TargetStream:  events.DefaultStream,
		},
	}
}

func TestRelay_ProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks every event", func(t *testing.T) {
		pub := new(MockPublisher)
		outbox := new(MockOutboxRepository)
		relay := NewRelay(outbox, pub, slog.Default(), RelayConfig{BatchSize: 10})

		pending := pendingEvents()
		outbox.On("GetPending", ctx, 10).Return(pending, nil)
		for _, event := range pending {
			ev := event
			pub.On("Publish", ctx, mock.MatchedBy(func(e *events.Event) bool {
				return e.ID == ev.ID && e.Type == ev.EventType && e.Stream == ev.TargetStream
			})).Return(nil)
			outbox.On("MarkProcessed", ctx, ev.ID).Return(nil)
		}

		require.NoError(t, relay.processEvents(ctx))

		pub.AssertExpectations(t)
		outbox.AssertExpectations(t)
	})

	t.Run("failed publish is marked for retry and others continue", func(t *testing.T) {
		pub := new(MockPublisher)
		outbox := new(MockOutboxRepository)
		relay := NewRelay(outbox, pub, slog.Default(), RelayConfig{BatchSize: 10})

		pending := pendingEvents()
		publishErr := errors.New("connection refused")
		outbox.On("GetPending", ctx, 10).Return(pending, nil)
		pub.On("Publish", ctx, mock.MatchedBy(func(e *events.Event) bool { return e.ID == pending[0].ID })).Return(publishErr)
		pub.On("Publish", ctx, mock.MatchedBy(func(e *events.Event) bool { return e.ID == pending[1].ID })).Return(nil)
		outbox.On("MarkFailed", ctx, pending[0].ID, publishErr).Return(nil)
		outbox.On("MarkProcessed", ctx, pending[1].ID).Return(nil)

		require.NoError(t, relay.processEvents(ctx))

		outbox.AssertExpectations(t)
		outbox.AssertNotCalled(t, "MarkProcessed", ctx, pending[0].ID)
	})

	t.Run("outbox read failure", func(t *testing.T) {
		pub := new(MockPublisher)
		outbox := new(MockOutboxRepository)
		relay := NewRelay(outbox, pub, nil, RelayConfig{})

		outbox.On("GetPending", ctx, 100).Return(nil, errors.New("db down"))

		assert.Error(t, relay.Flush(ctx))
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("nothing pending", func(t *testing.T) {
		pub := new(MockPublisher)
		outbox := new(MockOutboxRepository)
		relay := NewRelay(outbox, pub, nil, RelayConfig{BatchSize: 5})

		outbox.On("GetPending", ctx, 5).Return([]*OutboxEvent{}, nil)

		assert.NoError(t, relay.Flush(ctx))
	})
}

func TestRelay_StartStopsWithContext(t *testing.T) {
	pub := new(MockPublisher)
	outbox := new(MockOutboxRepository)
	relay := NewRelay(outbox, pub, nil, RelayConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	outbox.On("GetPending", mock.Anything, 100).Return([]*OutboxEvent{}, nil).Run(func(mock.Arguments) { cancel() })

	err := relay.Start(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
