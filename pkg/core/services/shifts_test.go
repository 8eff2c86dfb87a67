package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

var sunday = time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC)

func TestCreateShift(t *testing.T) {
	s := newStaffed(t, 1)
	m := s.volunteer("m")

	_, err := CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, ShiftInput{
		Title: "Backwards", StartTime: sunday, EndTime: sunday.Add(-time.Hour),
	}, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, ShiftInput{
		Title: "Empty", StartTime: sunday, EndTime: sunday,
	}, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, ShiftInput{
		Title: "Members cannot", StartTime: sunday, EndTime: sunday.Add(time.Hour),
	}, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	local := time.FixedZone("BST", 3600)
	shift, err := CreateShift(s.ctx, s.db, s.cfg, s.logger, s.group.ID, ShiftInput{
		Title:     "Breakfast",
		StartTime: time.Date(2026, 3, 1, 8, 0, 0, 0, local),
		EndTime:   time.Date(2026, 3, 1, 10, 0, 0, 0, local),
	}, s.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ShiftOpen, shift.Status)
	assert.Equal(t, time.UTC, shift.StartTime.Location())
	assert.Equal(t, 7, shift.StartTime.Hour())

	// Members can read, ordered by start time
	shifts, err := ListShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, m.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, shift.ID, shifts[0].ID)
	assert.Equal(t, s.shift.ID, shifts[1].ID)
}

func TestUpdateAndDeleteShift(t *testing.T) {
	s := newStaffed(t, 2)
	v := s.volunteer("v")
	a, err := s.apply(s.sp, v)
	require.NoError(t, err)

	updated, err := UpdateShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, ShiftInput{
		Title: "Late lunch", StartTime: sunday.Add(time.Hour), EndTime: sunday.Add(4 * time.Hour),
	}, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, "Late lunch", updated.Title)

	got, err := GetShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Late lunch", got.Title)
	assert.True(t, sunday.Add(time.Hour).Equal(got.StartTime))

	err = DeleteShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, v.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	require.NoError(t, DeleteShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, s.leader.ID))

	_, err = GetShift(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, v.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, err = GetAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, v.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestSetShiftStatus(t *testing.T) {
	s := newStaffed(t, 2)
	v := s.volunteer("v")

	_, err := SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "finished", s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "CLOSED", v.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	shift, err := SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "closed", s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ShiftClosed, shift.Status)

	_, err = s.apply(s.sp, v)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "OPEN", s.leader.ID)
	require.NoError(t, err)
	_, err = s.apply(s.sp, v)
	require.NoError(t, err)

	_, err = SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "COMPLETED", s.leader.ID)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "CANCELLED", s.leader.ID)
	require.NoError(t, err)

	_, err = SetShiftStatus(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, "OPEN", s.leader.ID)
	assertKind(t, err, apperr.KindInvalidState)
}

func TestCreateRecurringShifts(t *testing.T) {
	s := newStaffed(t, 1)
	tills := s.newPosition(s.group, s.leader, "Tills")

	shifts, err := CreateRecurringShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, RecurringShiftInput{
		RRule:       "FREQ=WEEKLY;COUNT=4",
		Start:       sunday.Add(7 * 24 * time.Hour),
		Duration:    3 * time.Hour,
		Title:       "Sunday lunch",
		PositionIDs: []string{s.position.ID, tills.ID},
	}, s.leader.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 4)

	for i, shift := range shifts {
		start := sunday.AddDate(0, 0, 7*(i+1))
		assert.True(t, start.Equal(shift.StartTime), "occurrence %d starts at %s", i, shift.StartTime)
		assert.True(t, start.Add(3*time.Hour).Equal(shift.EndTime))
		assert.Equal(t, db.ShiftOpen, shift.Status)

		slots, err := ListShiftPositions(s.ctx, s.db, s.cfg, s.logger, shift.ID, s.leader.ID)
		require.NoError(t, err)
		require.Len(t, slots, 2)
		for _, sp := range slots {
			assert.Equal(t, config.DefaultRequiredCount, sp.RequiredCount)
		}
	}

	all, err := ListShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, s.leader.ID)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCreateRecurringShifts_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		rrule string
		start time.Time
		count int
		kind  apperr.Kind
	}{
		{"count", "FREQ=DAILY;COUNT=3", sunday, 3, apperr.KindUnknown},
		{"until is inclusive", "FREQ=DAILY;UNTIL=20260310T110000Z", sunday, 3, apperr.KindUnknown},
		{"dtstart in rule", "DTSTART=20260308T110000Z;FREQ=WEEKLY;COUNT=2", time.Time{}, 2, apperr.KindUnknown},
		{"unbounded", "FREQ=DAILY", sunday, 0, apperr.KindValidation},
		{"over cap", "FREQ=DAILY;COUNT=5", sunday, 0, apperr.KindValidation},
		{"no start", "FREQ=DAILY;COUNT=2", time.Time{}, 0, apperr.KindValidation},
		{"garbage", "EVERY SUNDAY", sunday, 0, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStaffed(t, 1)
			s.cfg.Shifts.MaxRecurringOccurrences = 4

			shifts, err := CreateRecurringShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, RecurringShiftInput{
				RRule:    tt.rrule,
				Start:    tt.start,
				Duration: time.Hour,
				Title:    "Daily",
			}, s.leader.ID)
			if tt.kind != apperr.KindUnknown {
				assertKind(t, err, tt.kind)
				return
			}
			require.NoError(t, err)
			assert.Len(t, shifts, tt.count)
		})
	}
}

func TestCreateRecurringShifts_Atomic(t *testing.T) {
	s := newStaffed(t, 1)
	breakfast, err := CreateGroup(s.ctx, s.db, s.cfg, s.logger, s.org.ID, GroupInput{Name: "Breakfast"}, s.leader.ID)
	require.NoError(t, err)
	foreign := s.newPosition(breakfast, s.leader, "Porridge")

	_, err = CreateRecurringShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, RecurringShiftInput{
		RRule:       "FREQ=DAILY;COUNT=2",
		Start:       sunday,
		Duration:    time.Hour,
		Title:       "Mixed",
		PositionIDs: []string{s.position.ID, foreign.ID},
	}, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = CreateRecurringShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, RecurringShiftInput{
		RRule:       "FREQ=DAILY;COUNT=2",
		Start:       sunday,
		Duration:    time.Hour,
		Title:       "Twice",
		PositionIDs: []string{s.position.ID, s.position.ID},
	}, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	shifts, err := ListShifts(s.ctx, s.db, s.cfg, s.logger, s.group.ID, s.leader.ID)
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
}

func TestCreateShiftsFromTemplate(t *testing.T) {
	s := newStaffed(t, 1)
	s.cfg.Shifts.Templates = []config.ShiftTemplate{
		{Name: "lunch", RRule: "FREQ=WEEKLY;COUNT=2", Duration: "3h", Title: "Sunday lunch"},
	}

	shifts, err := CreateShiftsFromTemplate(s.ctx, s.db, s.cfg, s.logger, s.group.ID, "lunch", sunday, []string{s.position.ID}, s.leader.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, "Sunday lunch", shifts[1].Title)
	assert.True(t, sunday.AddDate(0, 0, 7).Add(3*time.Hour).Equal(shifts[1].EndTime))

	_, err = CreateShiftsFromTemplate(s.ctx, s.db, s.cfg, s.logger, s.group.ID, "brunch", sunday, nil, s.leader.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestAddShiftPosition(t *testing.T) {
	s := newStaffed(t, 1)
	tills := s.newPosition(s.group, s.leader, "Tills")
	s.cfg.Shifts.DefaultRequiredCount = 4

	sp, err := AddShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, tills.ID, 0, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, sp.RequiredCount)
	assert.Equal(t, 0, sp.VolunteersCount)

	_, err = AddShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, tills.ID, 2, s.leader.ID)
	assertKind(t, err, apperr.KindConflict)

	_, err = AddShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, tills.ID, -1, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	g, err := CreateGroup(s.ctx, s.db, s.cfg, s.logger, s.org.ID, GroupInput{Name: "Breakfast"}, s.leader.ID)
	require.NoError(t, err)
	foreign := s.newPosition(g, s.leader, "Porridge")
	_, err = AddShiftPosition(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, foreign.ID, 1, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	require.NoError(t, RemoveShiftPosition(s.ctx, s.db, s.cfg, s.logger, sp.ID, s.leader.ID))
	slots, err := ListShiftPositions(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, s.leader.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, s.sp.ID, slots[0].ID)
}

func TestUpdateRequiredCount(t *testing.T) {
	s := newStaffed(t, 2)
	v1, v2, v3 := s.volunteer("v1"), s.volunteer("v2"), s.volunteer("v3")
	for _, v := range []*db.User{v1, v2} {
		a, err := s.apply(s.sp, v)
		require.NoError(t, err)
		_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.leader.ID)
		require.NoError(t, err)
	}

	_, err := UpdateRequiredCount(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, 1, s.leader.ID)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = UpdateRequiredCount(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, 0, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	_, err = UpdateRequiredCount(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, 3, v1.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = s.apply(s.sp, v3)
	assertKind(t, err, apperr.KindCapacityExceeded)

	sp, err := UpdateRequiredCount(s.ctx, s.db, s.cfg, s.logger, s.sp.ID, 3, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sp.RequiredCount)
	assert.Equal(t, 2, sp.VolunteersCount)

	_, err = s.apply(s.sp, v3)
	require.NoError(t, err)
}

func TestExpandRRule(t *testing.T) {
	starts, err := expandRRule("FREQ=WEEKLY;BYDAY=SU;COUNT=3", time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, starts, 3)
	for _, s := range starts {
		assert.Equal(t, time.Sunday, s.Weekday())
	}
	assert.Equal(t, 8, starts[0].Day())

	_, err = expandRRule("FREQ=DAILY;COUNT=3", sunday, 2)
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, err.Error(), "more than 2 occurrences")
}
