package seeder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-reviews/ingest/pkg/nexhealth"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
}

func TestWebhook_ProducesValidDelivery(t *testing.T) {
	g := NewGenerator(42)

	body, err := g.Webhook(Options{Now: fixedNow})
	require.NoError(t, err)

	wh, err := nexhealth.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, nexhealth.EventAppointmentCompleted, wh.Type)
	assert.Equal(t, "2026-03-10T15:00:00Z", wh.Timestamp)

	appt, err := wh.DecodeAppointment()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T14:00:00Z", appt.ScheduledTime)

	assert.NotEmpty(t, appt.ID)
	assert.NotEmpty(t, appt.Practice.ID)
	assert.Contains(t, appt.Patient.Email, "@")
	assert.NotEmpty(t, appt.Patient.FullName())
}

func TestWebhook_Options(t *testing.T) {
	g := NewGenerator(7)

	body, err := g.Webhook(Options{
		EventType:     "appointment.created",
		Age:           10 * time.Minute,
		AppointmentID: "appt-1",
		Now:           fixedNow,
	})
	require.NoError(t, err)

	wh, err := nexhealth.ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "appointment.created", wh.Type)
	assert.Equal(t, "2026-03-10T14:50:00Z", wh.Timestamp)

	appt, err := wh.DecodeAppointment()
	require.NoError(t, err)
	assert.Equal(t, nexhealth.ID("appt-1"), appt.ID)
}

func TestGenerator_SeedIsDeterministic(t *testing.T) {
	scheduled := fixedNow()
	a := NewGenerator(99).Appointment("", scheduled)
	b := NewGenerator(99).Appointment("", scheduled)

	assert.Equal(t, a, b)
}

func TestLower(t *testing.T) {
	assert.Equal(t, "o'hara", lower("O'Hara"))
}
