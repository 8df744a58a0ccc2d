package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Hour)
	var transitions []string
	cb.SetStateChangeCallback(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	cb.RecordFailure()
	assert.True(t, cb.AllowRequest())
	cb.RecordFailure()

	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.AllowRequest())
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, time.Millisecond)
	cb.RecordFailure()
	time.Sleep(5 * time.Millisecond)

	assert.True(t, cb.AllowRequest())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Hour)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenAllowsSingleTrialCall(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(1, 2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.False(t, cb.AllowRequest())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.AllowRequest())
	assert.False(t, cb.AllowRequest(), "second caller must wait for the trial call")

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.True(t, cb.AllowRequest())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestFailedTrialCallReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(1, 1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Minute)
	assert.True(t, cb.AllowRequest())
	cb.RecordFailure()

	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.AllowRequest())
}
