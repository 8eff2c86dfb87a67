// Package lifecycle holds the allowed status transitions for assignments and shifts
package lifecycle

import (
	"slices"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

var assignmentTransitions = map[db.AssignmentStatus][]db.AssignmentStatus{
	db.AssignmentPending:   {db.AssignmentConfirmed, db.AssignmentCancelled},
	db.AssignmentConfirmed: {db.AssignmentCancelled},
	db.AssignmentCancelled: {},
}

var shiftTransitions = map[db.ShiftStatus][]db.ShiftStatus{
	db.ShiftOpen:      {db.ShiftClosed, db.ShiftCancelled},
	db.ShiftClosed:    {db.ShiftOpen, db.ShiftCompleted, db.ShiftCancelled},
	db.ShiftCompleted: {},
	db.ShiftCancelled: {},
}

// CanTransitionAssignment reports whether an assignment may move from one status to another
func CanTransitionAssignment(from, to db.AssignmentStatus) bool {
	return slices.Contains(assignmentTransitions[from], to)
}

// AssignmentTransition fails with InvalidState when from → to is not allowed
func AssignmentTransition(from, to db.AssignmentStatus) error {
	if CanTransitionAssignment(from, to) {
		return nil
	}
	if from == to {
		return apperr.InvalidState("assignment is already %s", from)
	}
	return apperr.InvalidState("assignment cannot move from %s to %s", from, to)
}

// AssignmentTerminal reports whether no further transition is possible
func AssignmentTerminal(s db.AssignmentStatus) bool {
	return len(assignmentTransitions[s]) == 0
}

// CanTransitionShift reports whether a shift may move from one status to another
func CanTransitionShift(from, to db.ShiftStatus) bool {
	return slices.Contains(shiftTransitions[from], to)
}

// ShiftTransition fails with InvalidState when from → to is not allowed
func ShiftTransition(from, to db.ShiftStatus) error {
	if CanTransitionShift(from, to) {
		return nil
	}
	if from == to {
		return apperr.InvalidState("shift is already %s", from)
	}
	return apperr.InvalidState("shift cannot move from %s to %s", from, to)
}

// AcceptsApplications reports whether volunteers may apply to a shift in status s
func AcceptsApplications(s db.ShiftStatus) bool {
	return s == db.ShiftOpen
}
