package seeder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

// Options shape a generated delivery.
type Options struct {
	EventType string
	// Age moves the envelope timestamp into the past (negative moves it forward).
	Age time.Duration
	// AppointmentID fixes data.id; random when empty.
	AppointmentID string
	// CompletedAgo is how long before now the appointment was scheduled.
	CompletedAgo time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Generator builds realistic NexHealth webhook payloads.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a generator. A zero seed picks a random one.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Appointment returns a random completed appointment.
func (g *Generator) Appointment(id string, scheduled time.Time) nexhealth.Appointment {
	if id == "" {
		id = strconv.Itoa(g.faker.Number(100000, 999999))
	}
	first := g.faker.FirstName()
	last := g.faker.LastName()
	return nexhealth.Appointment{
		ID: nexhealth.ID(id),
		Patient: nexhealth.Patient{
			ID:        nexhealth.ID(strconv.Itoa(g.faker.Number(1000, 99999))),
			Email:     fmt.Sprintf("%s.%s@%s", lower(first), lower(last), g.faker.DomainName()),
			FirstName: first,
			LastName:  last,
		},
		Practice: nexhealth.Practice{
			ID:   nexhealth.ID(strconv.Itoa(g.faker.Number(1, 500))),
			Name: g.faker.LastName() + " Family Dental",
		},
		ScheduledTime: scheduled.UTC().Format(time.RFC3339),
		Status:        "completed",
	}
}

// Webhook returns a complete delivery body.
func (g *Generator) Webhook(opts Options) ([]byte, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	eventType := opts.EventType
	if eventType == "" {
		eventType = nexhealth.EventAppointmentCompleted
	}
	completedAgo := opts.CompletedAgo
	if completedAgo == 0 {
		completedAgo = time.Hour
	}

	t := now()
	appt := g.Appointment(opts.AppointmentID, t.Add(-completedAgo))
	data, err := json.Marshal(appt)
	if err != nil {
		return nil, err
	}

	return json.Marshal(nexhealth.Webhook{
		Type:      eventType,
		Timestamp: t.Add(-opts.Age).UTC().Format(time.RFC3339Nano),
		Data:      data,
	})
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
