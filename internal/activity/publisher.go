// Package activity streams borrow request history through Redis and
// persists it to PostgreSQL.
//
// The API process publishes one event per creation or status change to a
// Redis stream without waiting on the write. A Worker in a consumer group
// reads the stream in batches, stores the events idempotently keyed by
// stream message id and acknowledges them. Messages that cannot be decoded
// or validated are moved to a dead-letter stream.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/campusshare/campusshare/internal/metrics"
	"github.com/campusshare/campusshare/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// StreamKey is the Redis stream for borrow events.
	StreamKey = "stream:borrow_events"

	// DeadLetterStreamKey holds messages the worker could not process.
	DeadLetterStreamKey = "stream:borrow_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout bounds a single asynchronous publish.
	PublishTimeout = 250 * time.Millisecond
)

// EventPayload is the wire format of a stream entry.
type EventPayload struct {
	ID         string `json:"id"`
	BorrowID   string `json:"bid"`
	ResourceID string `json:"rid"`
	Borrower   string `json:"b"`
	Owner      string `json:"o"`
	From       string `json:"f,omitempty"`
	To         string `json:"to"`
	OccurredAt int64  `json:"t"` // Unix milliseconds
}

// PayloadFromEvent converts a domain event to its wire format.
func PayloadFromEvent(e model.BorrowEvent) EventPayload {
	return EventPayload{
		ID:         e.ID,
		BorrowID:   e.BorrowID,
		ResourceID: e.ResourceID,
		Borrower:   e.Borrower,
		Owner:      e.Owner,
		From:       string(e.From),
		To:         string(e.To),
		OccurredAt: e.OccurredAt.UnixMilli(),
	}
}

// Event converts the payload back, tagging it with the stream message id.
func (p EventPayload) Event(messageID string) *model.BorrowEvent {
	return &model.BorrowEvent{
		ID:         p.ID,
		EventID:    messageID,
		BorrowID:   p.BorrowID,
		ResourceID: p.ResourceID,
		Borrower:   p.Borrower,
		Owner:      p.Owner,
		From:       model.BorrowStatus(p.From),
		To:         model.BorrowStatus(p.To),
		OccurredAt: time.UnixMilli(p.OccurredAt).UTC(),
	}
}

// Publisher appends borrow events to the stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewPublisher creates a Publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activity.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream and returns its message id.
func (p *Publisher) Publish(ctx context.Context, event model.BorrowEvent) (string, error) {
	data, err := json.Marshal(PayloadFromEvent(event))
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// PublishBorrowEvent publishes in the background. Failures are logged and
// counted; the event is dropped. After Drain has been called events are
// dropped without touching Redis.
func (p *Publisher) PublishBorrowEvent(event model.BorrowEvent) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("publisher closed, dropping borrow event", "borrow_id", event.BorrowID)
		p.metrics.IncActivityPublished(metrics.ActivityDropped)
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		id, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish borrow event",
				"borrow_id", event.BorrowID,
				"to", event.To,
				"error", err,
			)
			p.metrics.IncActivityPublished(metrics.ActivityDropped)
			return
		}

		p.logger.Debug("borrow event published",
			"borrow_id", event.BorrowID,
			"stream_id", id,
		)
		p.metrics.IncActivityPublished(metrics.ActivityPublished)
	}()
}

// Drain stops accepting events and waits for in-flight publishes. It must
// run before the Redis client is closed.
func (p *Publisher) Drain(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn("activity publisher drain timed out")
		return ctx.Err()
	}
}
