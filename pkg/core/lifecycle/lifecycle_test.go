package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

var assignmentStatuses = []db.AssignmentStatus{db.AssignmentPending, db.AssignmentConfirmed, db.AssignmentCancelled}

func TestAssignmentTransitions(t *testing.T) {
	allowed := map[[2]db.AssignmentStatus]bool{
		{db.AssignmentPending, db.AssignmentConfirmed}:   true,
		{db.AssignmentPending, db.AssignmentCancelled}:   true,
		{db.AssignmentConfirmed, db.AssignmentCancelled}: true,
	}

	for _, from := range assignmentStatuses {
		for _, to := range assignmentStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				want := allowed[[2]db.AssignmentStatus{from, to}]
				assert.Equal(t, want, CanTransitionAssignment(from, to))

				err := AssignmentTransition(from, to)
				if want {
					assert.NoError(t, err)
				} else {
					assert.True(t, apperr.Is(err, apperr.KindInvalidState))
				}
			})
		}
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	assert.True(t, AssignmentTerminal(db.AssignmentCancelled))
	assert.False(t, AssignmentTerminal(db.AssignmentConfirmed))
	assert.False(t, CanTransitionAssignment(db.AssignmentCancelled, db.AssignmentPending))
	assert.False(t, CanTransitionAssignment(db.AssignmentCancelled, db.AssignmentConfirmed))
}

func TestAssignmentTransition_Messages(t *testing.T) {
	assert.EqualError(t, AssignmentTransition(db.AssignmentConfirmed, db.AssignmentConfirmed),
		"InvalidState: assignment is already CONFIRMED")
	assert.EqualError(t, AssignmentTransition(db.AssignmentCancelled, db.AssignmentConfirmed),
		"InvalidState: assignment cannot move from CANCELLED to CONFIRMED")
}

func TestShiftTransitions(t *testing.T) {
	tests := []struct {
		from, to db.ShiftStatus
		want     bool
	}{
		{db.ShiftOpen, db.ShiftClosed, true},
		{db.ShiftOpen, db.ShiftCancelled, true},
		{db.ShiftOpen, db.ShiftCompleted, false},
		{db.ShiftClosed, db.ShiftOpen, true},
		{db.ShiftClosed, db.ShiftCompleted, true},
		{db.ShiftCompleted, db.ShiftOpen, false},
		{db.ShiftCancelled, db.ShiftOpen, false},
		{db.ShiftOpen, db.ShiftOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionShift(tt.from, tt.to))
			if !tt.want {
				assert.True(t, apperr.Is(ShiftTransition(tt.from, tt.to), apperr.KindInvalidState))
			}
		})
	}
}

func TestAcceptsApplications(t *testing.T) {
	assert.True(t, AcceptsApplications(db.ShiftOpen))
	assert.False(t, AcceptsApplications(db.ShiftClosed))
	assert.False(t, AcceptsApplications(db.ShiftCompleted))
}
