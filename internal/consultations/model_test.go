package consultations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusRequested, StatusAccepted},
		{StatusAccepted, StatusInProgress},
		{StatusInProgress, StatusCompleted},
		{StatusRequested, StatusCancelled},
		{StatusAccepted, StatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusRequested, StatusInProgress},
		{StatusRequested, StatusCompleted},
		{StatusAccepted, StatusCompleted},
		{StatusInProgress, StatusCancelled},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusAccepted},
		{StatusCancelled, StatusAccepted},
		{StatusCompleted, StatusCompleted},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t, []Status{StatusRequested}, AllowedFrom(StatusAccepted))
	assert.ElementsMatch(t, []Status{StatusRequested, StatusAccepted}, AllowedFrom(StatusCancelled))
	assert.Empty(t, AllowedFrom(StatusRequested), "requested is never a transition target")
}

func TestTimestampColumn(t *testing.T) {
	assert.Equal(t, "accepted_at", timestampColumn(StatusAccepted))
	assert.Equal(t, "started_at", timestampColumn(StatusInProgress))
	assert.Equal(t, "completed_at", timestampColumn(StatusCompleted))
	assert.Equal(t, "cancelled_at", timestampColumn(StatusCancelled))
	assert.Equal(t, "", timestampColumn(StatusRequested))
}
