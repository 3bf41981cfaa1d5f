package validator

import (
	"fmt"
	"time"
)

// ValidationError reports a payload field that is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// StaleTimestampError is returned when the claimed send time is too far
// from the receiver's clock, in either direction.
type StaleTimestampError struct {
	Claimed string
	Skew    time.Duration
	Err     error // parse error, if the timestamp could not be read
}

func (e *StaleTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid timestamp %q: %v", e.Claimed, e.Err)
	}
	return fmt.Sprintf("timestamp %q outside allowed window (skew %s)", e.Claimed, e.Skew)
}

func (e *StaleTimestampError) Unwrap() error { return e.Err }
