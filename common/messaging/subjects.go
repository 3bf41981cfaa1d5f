package messaging

// Subject constants for the review request bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	// Published after a review request has been durably scheduled.
	SubjectReviewRequestsScheduled = "reviews.requests.scheduled"
)

// Header names used on published messages.
const (
	HeaderRequestID     = "Request-Id"
	HeaderSourceEventID = "Source-Event-Id"
)

// Dead-letter subjects, one per failure reason: reviews.dlq.<reason>.
const (
	SubjectDeadLetterPrefix = "reviews.dlq."
	SubjectDeadLetterAll    = "reviews.dlq.>"
)

// HeaderDeadLetterReason is set on dead-letter messages.
const HeaderDeadLetterReason = "Dead-Letter-Reason"
