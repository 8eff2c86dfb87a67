package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volts/pkg/clients/sheetsclient"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/db"
)

type mockPublisher struct {
	spreadsheetID string
	roster        *sheetsclient.PublishedRoster
	calls         int
	err           error
}

func (m *mockPublisher) PublishRoster(spreadsheetID string, roster *sheetsclient.PublishedRoster) error {
	m.calls++
	m.spreadsheetID = spreadsheetID
	m.roster = roster
	return m.err
}

// rosterFixture staffs Kitchen with two confirmed and one pending volunteer,
// and adds an empty Tills slot. It returns the pending volunteer.
func rosterFixture(t *testing.T) (*staffed, *db.User) {
	t.Helper()
	s := newStaffed(t, 3)
	tills := s.newPosition(s.group, s.leader, "Tills")
	s.slot(s.shift, tills, s.leader, 2)

	for _, name := range []string{"zoe", "adam"} {
		a, err := s.apply(s.sp, s.volunteer(name))
		require.NoError(t, err)
		_, err = ConfirmAssignment(s.ctx, s.db, s.cfg, s.logger, a.ID, s.leader.ID)
		require.NoError(t, err)
	}
	// cas frees the last place before pat applies for it
	cancelled, err := s.apply(s.sp, s.volunteer("cas"))
	require.NoError(t, err)
	_, err = CancelAssignment(s.ctx, s.db, s.cfg, s.logger, cancelled.ID, s.leader.ID)
	require.NoError(t, err)

	pat := s.volunteer("pat")
	_, err = s.apply(s.sp, pat)
	require.NoError(t, err)

	return s, pat
}

func TestBuildRoster(t *testing.T) {
	s, pat := rosterFixture(t)

	roster, err := BuildRoster(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, s.shift.ID, roster.Shift.ID)
	require.Len(t, roster.Slots, 2)

	kitchen := roster.Slots[0]
	assert.Equal(t, "Kitchen", kitchen.Position)
	assert.Equal(t, 3, kitchen.Required)
	// Confirmation order, not alphabetical
	assert.Equal(t, []string{"zoe", "adam"}, kitchen.Confirmed)
	assert.Equal(t, 1, kitchen.Pending)
	assert.Equal(t, 1, kitchen.Open())

	tills := roster.Slots[1]
	assert.Equal(t, "Tills", tills.Position)
	assert.Empty(t, tills.Confirmed)
	assert.Equal(t, 0, tills.Pending)
	assert.Equal(t, 2, tills.Open())

	stranger := s.user("stranger")
	_, err = BuildRoster(s.ctx, s.db, s.cfg, s.logger, s.shift.ID, stranger.ID)
	assertKind(t, err, apperr.KindPermissionDenied)
}

func TestPublishRoster(t *testing.T) {
	s, _ := rosterFixture(t)
	s.cfg.Roster.SpreadsheetID = "sheet-1"
	publisher := &mockPublisher{}

	published, err := PublishRoster(s.ctx, s.db, publisher, s.cfg, s.logger, s.shift.ID, s.leader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, "sheet-1", publisher.spreadsheetID)
	assert.Same(t, published, publisher.roster)

	assert.Equal(t, "Sunday lunch", published.Title)
	assert.True(t, s.shift.StartTime.Equal(published.Start))
	require.Len(t, published.Rows, 2)
	assert.Equal(t, sheetsclient.PublishedRosterRow{
		Position: "Kitchen", Required: 3, Pending: 1, Volunteers: []string{"zoe", "adam"},
	}, published.Rows[0])
}

func TestPublishRoster_Errors(t *testing.T) {
	s, _ := rosterFixture(t)
	m := s.volunteer("m")
	publisher := &mockPublisher{}

	_, err := PublishRoster(s.ctx, s.db, publisher, s.cfg, s.logger, s.shift.ID, s.leader.ID)
	assertKind(t, err, apperr.KindValidation)

	s.cfg.Roster.SpreadsheetID = "sheet-1"
	_, err = PublishRoster(s.ctx, s.db, publisher, s.cfg, s.logger, s.shift.ID, m.ID)
	assertKind(t, err, apperr.KindPermissionDenied)
	assert.Zero(t, publisher.calls)

	publisher.err = errors.New("quota exceeded")
	_, err = PublishRoster(s.ctx, s.db, publisher, s.cfg, s.logger, s.shift.ID, s.leader.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish roster: quota exceeded")
}

func TestToPublishedRoster(t *testing.T) {
	roster := &Roster{
		Shift: db.Shift{Title: "Breakfast"},
		Slots: []RosterSlot{{Position: "Porridge", Required: 1}},
	}

	published := ToPublishedRoster(roster)
	assert.Equal(t, "Breakfast", published.Title)
	require.Len(t, published.Rows, 1)
	assert.Nil(t, published.Rows[0].Volunteers)
}
