package nexhealth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EventAppointmentCompleted is sent when an appointment is marked complete.
const EventAppointmentCompleted = "appointment.completed"

// Webhook is the delivery envelope. Data stays raw until the event type
// is known to be relevant.
type Webhook struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Appointment is the data object of appointment.* events.
type Appointment struct {
	ID            ID       `json:"id"`
	Patient       Patient  `json:"patient"`
	Practice      Practice `json:"practice"`
	ScheduledTime string   `json:"scheduled_time"`
	Status        string   `json:"status,omitempty"`
}

type Patient struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins first and last name, skipping empty parts.
func (p Patient) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

type Practice struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ID is a NexHealth identifier. The API sends numeric ids, older payloads
// and test fixtures send strings; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// PayloadError describes a body that does not match the expected shape.
type PayloadError struct {
	Field  string
	Reason string
}

func (e *PayloadError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// ParseWebhook decodes the envelope from the raw body. type and timestamp
// must be non-empty strings; data must be a JSON object when present.
func ParseWebhook(raw []byte) (*Webhook, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &PayloadError{Reason: "empty body"}
	}
	if trimmed[0] != '{' {
		return nil, &PayloadError{Reason: "body must be a JSON object"}
	}

	var w Webhook
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, &PayloadError{Reason: describeJSONError(err)}
	}

	w.Type = strings.TrimSpace(w.Type)
	if w.Type == "" {
		return nil, &PayloadError{Field: "type", Reason: "is required"}
	}
	if strings.TrimSpace(w.Timestamp) == "" {
		return nil, &PayloadError{Field: "timestamp", Reason: "is required"}
	}
	if d := bytes.TrimSpace(w.Data); len(d) > 0 && !bytes.Equal(d, []byte("null")) && d[0] != '{' {
		return nil, &PayloadError{Field: "data", Reason: "must be an object"}
	}

	return &w, nil
}

// DecodeAppointment decodes the data object as an Appointment.
func (w *Webhook) DecodeAppointment() (*Appointment, error) {
	d := bytes.TrimSpace(w.Data)
	if len(d) == 0 || bytes.Equal(d, []byte("null")) {
		return nil, &PayloadError{Field: "data", Reason: "is required"}
	}

	var appt Appointment
	if err := json.Unmarshal(d, &appt); err != nil {
		return nil, &PayloadError{Field: "data", Reason: describeJSONError(err)}
	}
	return &appt, nil
}

func describeJSONError(err error) string {
	switch e := err.(type) {
	case *json.UnmarshalTypeError:
		if e.Field != "" {
			return fmt.Sprintf("field %q has wrong type %s", e.Field, e.Value)
		}
		return "has wrong type " + e.Value
	case *json.SyntaxError:
		return fmt.Sprintf("malformed JSON at offset %d", e.Offset)
	default:
		return err.Error()
	}
}
