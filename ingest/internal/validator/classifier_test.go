package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier(t *testing.T) {
	c := NewClassifier("")
	assert.Equal(t, "appointment.completed", c.EventType)

	assert.True(t, c.IsRelevant("appointment.completed"))
	assert.False(t, c.IsRelevant("appointment.created"))
	assert.False(t, c.IsRelevant("Appointment.Completed"))
	assert.False(t, c.IsRelevant("appointment.completed "))
	assert.False(t, c.IsRelevant(""))

	custom := NewClassifier("appointment.checked_out")
	assert.True(t, custom.IsRelevant("appointment.checked_out"))
	assert.False(t, custom.IsRelevant("appointment.completed"))
}
