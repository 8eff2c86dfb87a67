package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

func TestAssignmentLifecycle_EndToEnd(t *testing.T) {
	s := newStaffed(t, 2)
	u1, u2, u3 := s.volunteer("u1"), s.volunteer("u2"), s.volunteer("u3")

	a1, err := s.apply(s.sp, u1)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentPending, a1.Status)
	assert.Nil(t, a1.ConfirmedAt)

	a2, err := s.apply(s.sp, u2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.countAssignments(s.sp.ID, db.AssignmentPending))

	_, err = s.apply(s.sp, u3)
	assertKind(t, err, apperr.KindCapacityExceeded)

	confirmed, err := ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a1.ID, s.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, 1, s.slotRecord(s.sp.ID).VolunteersCount)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a2.ID, s.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.countAssignments(s.sp.ID, db.AssignmentConfirmed))
	assert.Equal(t, 2, s.slotRecord(s.sp.ID).VolunteersCount)

	cancelled, err := CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a1.ID, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentCancelled, cancelled.Status)
	require.NotNil(t, cancelled.RejectedAt)
	assert.Equal(t, 1, s.countAssignments(s.sp.ID, db.AssignmentConfirmed))
	assert.Equal(t, 1, s.slotRecord(s.sp.ID).VolunteersCount)

	a3, err := s.apply(s.sp, u3)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentPending, a3.Status)
}

func TestApplyForShift_RequiresMembership(t *testing.T) {
	s := newStaffed(t, 2)
	outsider := s.user("outsider")

	_, err := s.apply(s.sp, outsider)
	assertKind(t, err, apperr.KindPermissionDenied)
	assert.Equal(t, 0, s.countAssignments(s.sp.ID))
}

func TestApplyForShift_Duplicate(t *testing.T) {
	s := newStaffed(t, 5)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)

	_, err = s.apply(s.sp, u)
	assertKind(t, err, apperr.KindConflict)

	// A cancelled assignment still blocks a second application
	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)
	_, err = s.apply(s.sp, u)
	assertKind(t, err, apperr.KindConflict)
}

func TestApplyForShift_ShiftNotOpen(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	_, err := SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "closed", s.leader.ID)
	require.NoError(t, err)

	_, err = s.apply(s.sp, u)
	assertKind(t, err, apperr.KindInvalidState)
}

func TestApplyForShift_NotFoundBeforePermission(t *testing.T) {
	s := newStaffed(t, 2)
	outsider := s.user("outsider")

	_, err := ApplyForShift(s.ctx, s.db, s.cfg, s.logger, ApplyInput{ShiftPositionID: "missing", UserID: outsider.ID})
	assertKind(t, err, apperr.KindNotFound)

	_, err = ApplyForShift(s.ctx, s.db, s.cfg, s.logger, ApplyInput{UserID: outsider.ID})
	assertKind(t, err, apperr.KindValidation)
}

func TestApplyForShift_Concurrent(t *testing.T) {
	s := newStaffed(t, 3)

	const applicants = 10
	users := make([]*db.User, applicants)
	for i := range users {
		users[i] = s.volunteer(string(rune('a' + i)))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u *db.User) {
			defer wg.Done()
			_, err := s.apply(s.sp, u)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case apperr.Is(err, apperr.KindCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, applicants-3, rejected)
	assert.Equal(t, 3, s.countAssignments(s.sp.ID))
}

func TestApplyForShift_RollsBackWhenCommitFails(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	commitErr := errors.New("commit failed")
	failing := &failingDatabase{inner: s.db, err: commitErr}

	_, err := ApplyForShift(s.ctx, failing, s.cfg, s.logger, ApplyInput{ShiftPositionID: s.sp.ID, UserID: u.ID})
	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, 0, s.countAssignments(s.sp.ID))
}

func TestConfirmAssignment_SelfConfirmRejected(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	// Elevated applicants cannot confirm themselves either
	own, err := s.apply(s.sp, s.leader)
	require.NoError(t, err)
	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, own.ID, s.leader.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, own.ID, s.admin.ID)
	require.NoError(t, err)
}

func TestConfirmAssignment_CapacityAfterShrink(t *testing.T) {
	s := newStaffed(t, 2)
	u1, u2 := s.volunteer("u1"), s.volunteer("u2")

	a1, err := s.apply(s.sp, u1)
	require.NoError(t, err)
	a2, err := s.apply(s.sp, u2)
	require.NoError(t, err)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a1.ID, s.admin.ID)
	require.NoError(t, err)

	_, err = UpdateRequiredCount(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, 1, s.leader.ID)
	require.NoError(t, err)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a2.ID, s.admin.ID)
	assertKind(t, err, apperr.KindCapacityExceeded)
	assert.Equal(t, 1, s.countAssignments(s.sp.ID, db.AssignmentConfirmed))
}

func TestAssignment_TerminalStatesAreFinal(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)
	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	assertKind(t, err, apperr.KindInvalidState)

	got, err := GetAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentCancelled, got.Status)
}

func TestConfirmAssignment_Twice(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)
	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID)
	require.NoError(t, err)

	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID)
	assertKind(t, err, apperr.KindInvalidState)
	assert.EqualError(t, err, "InvalidState: assignment is already CONFIRMED")
}

func TestConfirmAssignment_CancelledBeforeLock(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)

	// The applicant cancels after Confirm resolved the assignment but before it locked it
	hooked := &hookedDatabase{inner: s.db, beforeLock: setStatus(db.AssignmentCancelled, a.ID)}
	_, err = ConfirmAssignment(s.ctx, hooked, s.cfg, s.logger, a.ID, s.admin.ID)
	assertKind(t, err, apperr.KindInvalidState)
	assert.Contains(t, hooked.calls, "LockAssignment")

	// The rejected confirm rolled back with everything else in its transaction
	got, err := GetAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentPending, got.Status)

	// Committed for real, the cancel stays terminal
	require.NoError(t, s.db.InTx(s.ctx, setStatus(db.AssignmentCancelled, a.ID)))
	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID)
	assertKind(t, err, apperr.KindInvalidState)

	got, err = GetAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, db.AssignmentCancelled, got.Status)
	assert.NotNil(t, got.RejectedAt)
	assert.Nil(t, got.ConfirmedAt)
	assert.Equal(t, 0, s.countAssignments(s.sp.ID, db.AssignmentConfirmed))
}

func TestCancelAssignment_ConfirmedBeforeLock(t *testing.T) {
	s := newStaffed(t, 2)
	u := s.volunteer("u")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)

	hooked := &hookedDatabase{inner: s.db, beforeLock: setStatus(db.AssignmentConfirmed, a.ID)}
	cancelled, err := CancelAssignment(s.ctx, hooked, s.cfg, s.logger, a.ID, u.ID)
	require.NoError(t, err)

	// The cancel works from the locked copy, keeping the confirmation it raced with
	assert.Equal(t, db.AssignmentCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ConfirmedAt)
	assert.NotNil(t, cancelled.RejectedAt)
	assert.Equal(t, 0, s.countAssignments(s.sp.ID, db.AssignmentConfirmed))
}

func TestCancelAssignment_Permissions(t *testing.T) {
	s := newStaffed(t, 3)
	u, other := s.volunteer("u"), s.volunteer("other")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)

	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, other.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.leader.ID)
	require.NoError(t, err)

	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, "missing", s.leader.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestDeleteAssignment(t *testing.T) {
	s := newStaffed(t, 2)
	u, other := s.volunteer("u"), s.volunteer("other")

	a, err := s.apply(s.sp, u)
	require.NoError(t, err)
	_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.slotRecord(s.sp.ID).VolunteersCount)

	err = DeleteAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, other.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	require.NoError(t, DeleteAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.admin.ID))
	assert.Equal(t, 0, s.countAssignments(s.sp.ID))
	assert.Equal(t, 0, s.slotRecord(s.sp.ID).VolunteersCount)

	// Deleting frees the user to apply again
	_, err = s.apply(s.sp, u)
	require.NoError(t, err)
}

func TestAssignmentReads(t *testing.T) {
	s := newStaffed(t, 3)
	u1, u2 := s.volunteer("u1"), s.volunteer("u2")
	outsider := s.user("outsider")

	driver := s.newPosition(s.group, s.leader, "Driver")
	sp2 := s.slot(s.shift, driver, s.leader, 1)

	a1, err := s.apply(s.sp, u1)
	require.NoError(t, err)
	_, err = s.apply(s.sp, u2)
	require.NoError(t, err)
	_, err = s.apply(sp2, u1)
	require.NoError(t, err)

	bySlot, err := ListAssignmentsByShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, u2.ID)
	require.NoError(t, err)
	require.Len(t, bySlot, 2)
	assert.Equal(t, a1.ID, bySlot[0].ID)

	byShift, err := ListAssignmentsByShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, s.admin.ID)
	require.NoError(t, err)
	assert.Len(t, byShift, 3)

	_, err = ListAssignmentsByShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, outsider.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	got, err := GetAssignment(s.ctx, s.db, s.cfg, s.logger, a1.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, got.UserID)

	_, err = GetAssignment(s.ctx, s.db, s.cfg, s.logger, a1.ID, outsider.ID)
	assertKind(t, err, apperr.KindPermissionDenied)
}
