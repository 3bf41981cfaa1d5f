package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a review request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ReviewRequest is a follow-up scheduled for a completed appointment.
// SourceEventID is unique across all records.
type ReviewRequest struct {
	ID                string          `json:"id"`
	PatientEmail      string          `json:"patient_email"`
	PatientName       string          `json:"patient_name,omitempty"`
	SourceEventID     string          `json:"appointment_id"`
	OwnerID           string          `json:"practice_id"`
	PracticeName      string          `json:"practice_name,omitempty"`
	ScheduledSendTime time.Time       `json:"scheduled_send_time"`
	Status            Status          `json:"status"`
	Metadata          Metadata        `json:"metadata"`
	RawWebhookData    json.RawMessage `json:"raw_webhook_data,omitempty"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	RetryCount        int             `json:"retry_count"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Metadata is informational and never drives scheduling.
type Metadata struct {
	PatientName     string    `json:"patient_name,omitempty"`
	PracticeName    string    `json:"practice_name,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
}

// ValidEvent is an appointment payload that passed validation.
type ValidEvent struct {
	EventType       string
	SourceEventID   string
	OwnerID         string
	PatientEmail    string
	PatientName     string
	PracticeName    string
	AppointmentTime time.Time
	Raw             []byte
}
