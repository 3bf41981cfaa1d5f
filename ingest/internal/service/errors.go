package service

import "errors"

// ErrorKind classifies a rejected delivery.
type ErrorKind string

const (
	KindInvalidSignature ErrorKind = "invalid_signature"
	KindStaleTimestamp   ErrorKind = "stale_timestamp"
	KindInvalidPayload   ErrorKind = "invalid_payload"
	KindPersistence      ErrorKind = "persistence"
	KindInternal         ErrorKind = "internal"
)

// Error is returned by Process for every rejected delivery.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

var errSignatureMismatch = errors.New("signature mismatch")
