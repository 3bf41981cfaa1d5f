// Package dlq parks verified deliveries that could not be stored, so an
// operator can replay them once the store is healthy again.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/common/messaging"
	"github.com/telhawk-systems/telhawk-reviews/common/middleware"
)

// ReasonPersistence marks deliveries the store rejected or timed out on.
const ReasonPersistence = "persistence"

// FailedDelivery is the body of a dead-letter message. Payload is the
// exact signed body, replayable with `reviewctl webhook send --file`.
type FailedDelivery struct {
	Timestamp     time.Time       `json:"timestamp"`
	Reason        string          `json:"reason"`
	Error         string          `json:"error"`
	SourceEventID string          `json:"appointment_id,omitempty"`
	OwnerID       string          `json:"practice_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Queue writes failed deliveries to the message bus.
type Queue struct {
	client  messaging.Publisher
	now     func() time.Time
	written atomic.Uint64
}

func NewQueue(client messaging.Publisher) *Queue {
	return &Queue{client: client, now: time.Now}
}

// Subject returns the dead-letter subject for reason.
func Subject(reason string) string {
	return messaging.SubjectDeadLetterPrefix + reason
}

// Write publishes one failed delivery. A nil queue is a no-op.
func (q *Queue) Write(ctx context.Context, f FailedDelivery) error {
	if q == nil {
		return nil
	}
	if f.Reason == "" {
		return fmt.Errorf("dead letter reason is required")
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = q.now().UTC()
	}
	if f.RequestID == "" {
		f.RequestID = middleware.GetRequestID(ctx)
	}
	if !json.Valid(f.Payload) {
		// Carry non-JSON bodies as a string.
		raw, _ := json.Marshal(string(f.Payload))
		f.Payload = raw
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	subject := Subject(f.Reason)
	opts := []messaging.PublishOption{messaging.WithHeader(messaging.HeaderDeadLetterReason, f.Reason)}
	if f.SourceEventID != "" {
		opts = append(opts, messaging.WithHeader(messaging.HeaderSourceEventID, f.SourceEventID))
	}
	if f.RequestID != "" {
		opts = append(opts, messaging.WithHeader(messaging.HeaderRequestID, f.RequestID))
	}

	if err := q.client.PublishMsg(ctx, messaging.NewMessage(subject, data, opts...)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	q.written.Add(1)
	return nil
}

// Written returns how many dead letters this process has published.
func (q *Queue) Written() uint64 {
	if q == nil {
		return 0
	}
	return q.written.Load()
}
