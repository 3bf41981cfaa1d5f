package nexhealth

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "type": "appointment.completed",
  "timestamp": "2024-03-01T15:04:05Z",
  "data": {
    "id": 123456,
    "patient": {"id": 42, "email": "jane@example.com", "first_name": "Jane", "last_name": "Doe"},
    "practice": {"id": "p-7", "name": "Bright Smiles"},
    "scheduled_time": "2024-03-01T14:00:00Z",
    "status": "completed"
  }
}`

func TestParseWebhook(t *testing.T) {
	w, err := ParseWebhook([]byte(samplePayload))
	require.NoError(t, err)
	assert.Equal(t, EventAppointmentCompleted, w.Type)
	assert.Equal(t, "2024-03-01T15:04:05Z", w.Timestamp)

	appt, err := w.DecodeAppointment()
	require.NoError(t, err)
	assert.Equal(t, ID("123456"), appt.ID)
	assert.Equal(t, ID("42"), appt.Patient.ID)
	assert.Equal(t, "jane@example.com", appt.Patient.Email)
	assert.Equal(t, "Jane Doe", appt.Patient.FullName())
	assert.Equal(t, ID("p-7"), appt.Practice.ID)
	assert.Equal(t, "Bright Smiles", appt.Practice.Name)
	assert.Equal(t, "2024-03-01T14:00:00Z", appt.ScheduledTime)
}

func TestParseWebhook_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"array", `[1,2]`, ""},
		{"malformed", `{"type":`, ""},
		{"missing type", `{"timestamp":"2024-01-01T00:00:00Z"}`, "type"},
		{"type wrong kind", `{"type":5,"timestamp":"x"}`, ""},
		{"missing timestamp", `{"type":"appointment.completed"}`, "timestamp"},
		{"data not object", `{"type":"a","timestamp":"b","data":"nope"}`, "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(tt.body))
			require.Error(t, err)

			var perr *PayloadError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
		})
	}
}

func TestDecodeAppointment_MissingData(t *testing.T) {
	w, err := ParseWebhook([]byte(`{"type":"appointment.completed","timestamp":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	_, err = w.DecodeAppointment()
	var perr *PayloadError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "data", perr.Field)
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw     string
		want    ID
		wantErr bool
	}{
		{`"abc"`, "abc", false},
		{`" padded "`, "padded", false},
		{`123`, "123", false},
		{`1.5e3`, "1.5e3", false},
		{`null`, "", false},
		{`true`, "", true},
		{`{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.raw), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPatientFullName(t *testing.T) {
	assert.Equal(t, "Jane", Patient{FirstName: "Jane"}.FullName())
	assert.Equal(t, "Doe", Patient{LastName: " Doe "}.FullName())
	assert.Equal(t, "", Patient{}.FullName())
}
