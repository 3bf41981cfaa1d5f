package validator

import (
	"net/mail"
	"strings"

	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

const maxEmailLength = 254

// ValidateAppointment checks the fields a follow-up depends on and returns
// them as a ValidEvent. raw is carried through untouched.
func ValidateAppointment(eventType string, appt *nexhealth.Appointment, raw []byte) (models.ValidEvent, error) {
	if appt == nil {
		return models.ValidEvent{}, &ValidationError{Field: "data", Reason: "is required"}
	}

	sourceID := strings.TrimSpace(appt.ID.String())
	if sourceID == "" {
		return models.ValidEvent{}, &ValidationError{Field: "data.id", Reason: "is required"}
	}

	ownerID := strings.TrimSpace(appt.Practice.ID.String())
	if ownerID == "" {
		return models.ValidEvent{}, &ValidationError{Field: "data.practice.id", Reason: "is required"}
	}

	email, err := normalizeEmail(appt.Patient.Email)
	if err != nil {
		return models.ValidEvent{}, err
	}

	if strings.TrimSpace(appt.ScheduledTime) == "" {
		return models.ValidEvent{}, &ValidationError{Field: "data.scheduled_time", Reason: "is required"}
	}
	apptTime, err := ParseTimestamp(appt.ScheduledTime)
	if err != nil {
		return models.ValidEvent{}, &ValidationError{Field: "data.scheduled_time", Reason: "must be an RFC 3339 timestamp"}
	}

	return models.ValidEvent{
		EventType:       eventType,
		SourceEventID:   sourceID,
		OwnerID:         ownerID,
		PatientEmail:    email,
		PatientName:     appt.Patient.FullName(),
		PracticeName:    strings.TrimSpace(appt.Practice.Name),
		AppointmentTime: apptTime,
		Raw:             raw,
	}, nil
}

func normalizeEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: "data.patient.email", Reason: "is required"}
	}
	if len(s) > maxEmailLength {
		return "", &ValidationError{Field: "data.patient.email", Reason: "is too long"}
	}
	addr, err := mail.ParseAddress(s)
	// Reject display-name forms like "Jane <jane@example.com>".
	if err != nil || addr.Address != s {
		return "", &ValidationError{Field: "data.patient.email", Reason: "is not a valid address"}
	}
	return addr.Address, nil
}
