// Package events announces newly scheduled review requests on the message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/common/messaging"
	"github.com/telhawk-systems/telhawk-reviews/common/middleware"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
)

// ReviewRequestScheduled is the payload of SubjectReviewRequestsScheduled.
// It carries what a sender needs to pick the record up, not the patient data.
type ReviewRequestScheduled struct {
	ReviewRequestID   string    `json:"review_request_id"`
	SourceEventID     string    `json:"appointment_id"`
	OwnerID           string    `json:"practice_id"`
	ScheduledSendTime time.Time `json:"scheduled_send_time"`
	CreatedAt         time.Time `json:"created_at"`
}

// Publisher sends scheduling events through a messaging.Publisher.
type Publisher struct {
	client  messaging.Publisher
	subject string
}

// NewPublisher publishes on subject, or on the default scheduled subject
// when subject is empty.
func NewPublisher(client messaging.Publisher, subject string) *Publisher {
	if subject == "" {
		subject = messaging.SubjectReviewRequestsScheduled
	}
	return &Publisher{client: client, subject: subject}
}

// PublishScheduled announces req. The request id of ctx, if any, travels
// as a header.
func (p *Publisher) PublishScheduled(ctx context.Context, req *models.ReviewRequest) error {
	data, err := json.Marshal(ReviewRequestScheduled{
		ReviewRequestID:   req.ID,
		SourceEventID:     req.SourceEventID,
		OwnerID:           req.OwnerID,
		ScheduledSendTime: req.ScheduledSendTime,
		CreatedAt:         req.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	opts := []messaging.PublishOption{
		messaging.WithHeader(messaging.HeaderSourceEventID, req.SourceEventID),
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		opts = append(opts, messaging.WithHeader(messaging.HeaderRequestID, reqID))
	}

	if err := p.client.PublishMsg(ctx, messaging.NewMessage(p.subject, data, opts...)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", p.subject, err)
	}
	return nil
}

// Subject returns the subject events are published on.
func (p *Publisher) Subject() string {
	return p.subject
}
