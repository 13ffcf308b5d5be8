package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentStatusSeatAccounting(t *testing.T) {
	assert.True(t, EnrollmentStatusActive.CountsAgainstCapacity())
	assert.True(t, EnrollmentStatusPending.CountsAgainstCapacity())
	assert.False(t, EnrollmentStatusWaitlisted.CountsAgainstCapacity())
	assert.False(t, EnrollmentStatusCompleted.CountsAgainstCapacity())
	assert.False(t, EnrollmentStatusCancelled.CountsAgainstCapacity())
}

func TestEnrollmentStatusReenrollment(t *testing.T) {
	for _, s := range AllEnrollmentStatuses {
		if s == EnrollmentStatusCancelled {
			assert.False(t, s.BlocksReenrollment(), s)
			continue
		}
		assert.True(t, s.BlocksReenrollment(), s)
	}
	assert.False(t, EnrollmentStatus("bogus").BlocksReenrollment())
}

func TestEnrollmentStatusTransitions(t *testing.T) {
	assert.True(t, EnrollmentStatusPending.CanTransitionTo(EnrollmentStatusActive))
	assert.True(t, EnrollmentStatusPending.CanTransitionTo(EnrollmentStatusCancelled))
	assert.True(t, EnrollmentStatusWaitlisted.CanTransitionTo(EnrollmentStatusPending))
	assert.True(t, EnrollmentStatusActive.CanTransitionTo(EnrollmentStatusCompleted))

	assert.False(t, EnrollmentStatusCompleted.CanTransitionTo(EnrollmentStatusActive))
	assert.False(t, EnrollmentStatusCancelled.CanTransitionTo(EnrollmentStatusActive))
	assert.False(t, EnrollmentStatusActive.CanTransitionTo(EnrollmentStatusWaitlisted))
}
