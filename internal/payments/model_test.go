package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCompleted))
	assert.True(t, CanTransition(StatusPending, StatusFailed))
	assert.True(t, CanTransition(StatusCompleted, StatusRefunded))

	assert.False(t, CanTransition(StatusPending, StatusRefunded), "only completed payments refund")
	assert.False(t, CanTransition(StatusFailed, StatusCompleted))
	assert.False(t, CanTransition(StatusFailed, StatusRefunded))
	assert.False(t, CanTransition(StatusRefunded, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusFailed))
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t, []Status{StatusPending}, AllowedFrom(StatusCompleted))
	assert.Equal(t, []Status{StatusPending}, AllowedFrom(StatusFailed))
	assert.Equal(t, []Status{StatusCompleted}, AllowedFrom(StatusRefunded))
	assert.Empty(t, AllowedFrom(StatusPending))
}
