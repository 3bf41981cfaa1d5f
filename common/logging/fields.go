package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging.
const (
	FieldService          = "service"
	FieldRequestID        = "request_id"
	FieldIP               = "ip"
	FieldMethod           = "method"
	FieldPath             = "path"
	FieldStatus           = "status"
	FieldDuration         = "duration_ms"
	FieldError            = "error"
	FieldEventType        = "event_type"
	FieldSourceEventID    = "source_event_id"
	FieldOwnerID          = "owner_id"
	FieldReviewRequestID  = "review_request_id"
	FieldClaimedTimestamp = "claimed_timestamp"
	FieldSkew             = "skew"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// EventType returns a slog attribute for a webhook event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// SourceEventID returns a slog attribute for the sender's event identifier.
func SourceEventID(id string) slog.Attr {
	return slog.String(FieldSourceEventID, id)
}

// OwnerID returns a slog attribute for the sender's owning unit (practice).
func OwnerID(id string) slog.Attr {
	return slog.String(FieldOwnerID, id)
}

// ReviewRequestID returns a slog attribute for a stored review request.
func ReviewRequestID(id string) slog.Attr {
	return slog.String(FieldReviewRequestID, id)
}

// ClaimedTimestamp returns a slog attribute for a sender-supplied timestamp.
func ClaimedTimestamp(ts string) slog.Attr {
	return slog.String(FieldClaimedTimestamp, ts)
}

// Skew returns a slog attribute for a clock skew.
func Skew(d time.Duration) slog.Attr {
	return slog.String(FieldSkew, d.String())
}
