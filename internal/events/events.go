package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

const (
	EventReviewsCollected = "REVIEWS_COLLECTED"
	EventCollectionFailed = "REVIEWS_COLLECTION_FAILED"

	AggregateScrapeRun = "scrape_run"

	DefaultStream = "stream:review_events"

	source = "maps-review-scraper"
)

// Event is one message destined for a Redis stream.
type Event struct {
	ID            uuid.UUID
	Type          string
	AggregateType string
	AggregateID   string
	Stream        string
	Payload       json.RawMessage
	CreatedAt     time.Time
	RetryCount    int
}

type CollectedPayload struct {
	JobID    string   `json:"job_id"`
	Place    string   `json:"place"`
	Location string   `json:"location,omitempty"`
	Reviews  int      `json:"reviews"`
	Expected int      `json:"expected_total,omitempty"`
	Cycles   int      `json:"cycles"`
	Columns  []string `json:"columns"`
	Output   string   `json:"output,omitempty"`
}

type FailedPayload struct {
	JobID    string `json:"job_id"`
	Place    string `json:"place"`
	Location string `json:"location,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// NewResultEvent describes a finished job. Results without reviews become
// a failure event carrying the fault code.
func NewResultEvent(jobID string, result *models.ScrapeResult, output string) (*Event, error) {
	var (
		eventType string
		payload   any
	)

	if result.Success {
		eventType = EventReviewsCollected
		payload = CollectedPayload{
			JobID:    jobID,
			Place:    result.Target.Name,
			Location: result.Target.Location,
			Reviews:  len(result.Reviews),
			Expected: result.Expected,
			Cycles:   result.Cycles,
			Columns:  result.Columns,
			Output:   output,
		}
	} else {
		eventType = EventCollectionFailed
		p := FailedPayload{
			JobID:    jobID,
			Place:    result.Target.Name,
			Location: result.Target.Location,
		}
		if result.Error != nil {
			p.Code = result.Error.Code
			p.Message = result.Error.Message
		}
		payload = p
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &Event{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateType: AggregateScrapeRun,
		AggregateID:   jobID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}, nil
}

// RedisClient is the subset of the go-redis client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

// NewRedisPublisher publishes to stream unless an event names its own.
func NewRedisPublisher(client RedisClient, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "event_publisher"),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	stream := event.Stream
	if stream == "" {
		stream = p.stream
	}

	var payload any
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	envelope := map[string]any{
		"id":             event.ID.String(),
		"type":           event.Type,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"timestamp":      event.CreatedAt.Format(time.RFC3339),
		"payload":        payload,
		"metadata": map[string]any{
			"source":      source,
			"retry_count": event.RetryCount,
			"stream":      stream,
		},
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"data":           string(data),
			"type":           event.Type,
			"timestamp":      fmt.Sprintf("%d", event.CreatedAt.UnixNano()),
			"original_id":    event.ID.String(),
			"aggregate_id":   event.AggregateID,
			"aggregate_type": event.AggregateType,
		},
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "event_id", event.ID, "type", event.Type, "stream", stream, "entry", id)
	return nil
}
