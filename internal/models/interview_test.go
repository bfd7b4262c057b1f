package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{65 * time.Second, "1:05"},
		{61*time.Minute + 30*time.Second, "61:30"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestInterviewDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	iv := &Interview{StartTime: start}
	assert.Equal(t, 90*time.Second, iv.Duration(start.Add(90*time.Second)))

	end := start.Add(2 * time.Minute)
	iv.EndTime = &end
	assert.Equal(t, 2*time.Minute, iv.Duration(start.Add(time.Hour)))
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusPaused.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusAbandoned.Terminal())
}

func TestExperienceValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ExperienceSenior.Valid())
	assert.False(t, ExperienceLevel("intern").Valid())
}
