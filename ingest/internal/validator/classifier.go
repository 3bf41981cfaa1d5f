package validator

import "github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"

// Classifier decides whether an event type triggers a follow-up.
type Classifier struct {
	EventType string
}

// NewClassifier returns a classifier for eventType, or for
// appointment.completed when eventType is empty.
func NewClassifier(eventType string) Classifier {
	if eventType == "" {
		eventType = nexhealth.EventAppointmentCompleted
	}
	return Classifier{EventType: eventType}
}

// IsRelevant is an exact, case-sensitive match.
func (c Classifier) IsRelevant(eventType string) bool {
	return eventType == c.EventType
}
