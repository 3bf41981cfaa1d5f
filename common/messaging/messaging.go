// Package messaging provides abstractions for message broker communication.
// Services publish through these interfaces without being coupled to a
// specific broker implementation.
package messaging

import (
	"context"
	"time"
)

// Message represents a message sent to a message broker.
type Message struct {
	// Subject is the topic/channel the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a fire-and-forget message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with full control over headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Close releases any resources held by the publisher.
	Close() error
}

// NewMessage builds a Message stamped with the current time.
func NewMessage(subject string, data []byte, opts ...PublishOption) *Message {
	o := publishOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Message{
		Subject:   subject,
		Data:      data,
		Metadata:  o.headers,
		Timestamp: time.Now().UTC(),
	}
}

// PublishOption configures message publishing behavior.
type PublishOption func(*publishOptions)

type publishOptions struct {
	headers map[string]string
}

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(o *publishOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}
