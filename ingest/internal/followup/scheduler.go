// Package followup turns a validated appointment into a review request
// scheduled for later delivery.
package followup

import (
	"time"

	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/validator"
)

// DefaultDelay is how long after the appointment the review request goes out.
const DefaultDelay = 24 * time.Hour

// Scheduler builds review request records. It has no side effects.
type Scheduler struct {
	Delay time.Duration
}

// NewScheduler returns a Scheduler, using DefaultDelay when delay is not positive.
func NewScheduler(delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{Delay: delay}
}

// BuildRecord derives a pending review request from ev. The same input
// always yields the same record. ID and store timestamps are left empty.
func (s *Scheduler) BuildRecord(ev models.ValidEvent) (*models.ReviewRequest, error) {
	switch {
	case ev.PatientEmail == "":
		return nil, &validator.ValidationError{Field: "data.patient.email", Reason: "is required"}
	case ev.SourceEventID == "":
		return nil, &validator.ValidationError{Field: "data.id", Reason: "is required"}
	case ev.OwnerID == "":
		return nil, &validator.ValidationError{Field: "data.practice.id", Reason: "is required"}
	case ev.AppointmentTime.IsZero():
		return nil, &validator.ValidationError{Field: "data.scheduled_time", Reason: "is required"}
	}

	delay := s.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	// timestamptz stores microseconds
	apptTime := ev.AppointmentTime.UTC().Truncate(time.Microsecond)

	var raw []byte
	if len(ev.Raw) > 0 {
		raw = append([]byte(nil), ev.Raw...)
	}

	return &models.ReviewRequest{
		PatientEmail:      ev.PatientEmail,
		PatientName:       ev.PatientName,
		SourceEventID:     ev.SourceEventID,
		OwnerID:           ev.OwnerID,
		PracticeName:      ev.PracticeName,
		ScheduledSendTime: apptTime.Add(delay),
		Status:            models.StatusPending,
		Metadata: models.Metadata{
			PatientName:     ev.PatientName,
			PracticeName:    ev.PracticeName,
			AppointmentTime: apptTime,
		},
		RawWebhookData: raw,
	}, nil
}
