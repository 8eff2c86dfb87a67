package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/clients/sheetsclient"
	"github.com/jakechorley/volts/pkg/core/apperr"
	"github.com/jakechorley/volts/pkg/core/authz"
	"github.com/jakechorley/volts/pkg/db"
)

// RosterSlot is one shift position with its confirmed volunteers
type RosterSlot struct {
	ShiftPositionID string
	Position        string
	Required        int
	Confirmed       []string // Volunteer names in confirmation order
	Pending         int
}

// Open returns how many confirmed places are still free
func (s RosterSlot) Open() int {
	return max(s.Required-len(s.Confirmed), 0)
}

// Roster is the staffing picture of one shift
type Roster struct {
	Shift db.Shift
	Slots []RosterSlot
}

// RosterPublisher writes a roster somewhere people can read it
type RosterPublisher interface {
	PublishRoster(spreadsheetID string, roster *sheetsclient.PublishedRoster) error
}

// BuildRoster collects, per slot, the confirmed volunteers and the number of
// pending applications. Any member of the owning organization may view it.
func BuildRoster(ctx context.Context, database db.Database, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) (*Roster, error) {
	logger.Debug("Building roster", zap.String("shift_id", shiftID))

	var roster *Roster
	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		chain, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), authz.AllOrgRoles...)
		if err != nil {
			return err
		}

		slots, err := q.ListShiftPositions(ctx, shiftID)
		if err != nil {
			return fmt.Errorf("failed to list shift positions: %w", err)
		}

		roster = &Roster{Shift: *chain.Shift}
		names := make(map[string]string)
		for _, sp := range slots {
			position, err := authz.Lookup(ctx, q.GetPosition, "position", sp.PositionID)
			if err != nil {
				return err
			}

			assignments, err := q.ListAssignments(ctx, sp.ID)
			if err != nil {
				return fmt.Errorf("failed to list assignments: %w", err)
			}

			slot := RosterSlot{ShiftPositionID: sp.ID, Position: position.Name, Required: sp.RequiredCount}
			var confirmed []db.Assignment
			for _, a := range assignments {
				switch a.Status {
				case db.AssignmentConfirmed:
					confirmed = append(confirmed, a)
				case db.AssignmentPending:
					slot.Pending++
				}
			}
			sort.SliceStable(confirmed, func(i, j int) bool {
				return confirmedAt(confirmed[i]).Before(confirmedAt(confirmed[j]))
			})

			for _, a := range confirmed {
				name, ok := names[a.UserID]
				if !ok {
					user, err := authz.Lookup(ctx, q.GetUser, "user", a.UserID)
					if err != nil {
						return err
					}
					name = user.Name
					names[a.UserID] = name
				}
				slot.Confirmed = append(slot.Confirmed, name)
			}
			roster.Slots = append(roster.Slots, slot)
		}

		sort.SliceStable(roster.Slots, func(i, j int) bool {
			return roster.Slots[i].Position < roster.Slots[j].Position
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Roster built",
		zap.String("shift_id", shiftID),
		zap.Int("slots", len(roster.Slots)))

	return roster, nil
}

func confirmedAt(a db.Assignment) time.Time {
	if a.ConfirmedAt != nil {
		return *a.ConfirmedAt
	}
	return a.AppliedAt
}

// PublishRoster builds the shift's roster and writes it to the configured
// roster spreadsheet. Requires ADMIN or LEADER.
func PublishRoster(ctx context.Context, database db.Database, publisher RosterPublisher, cfg *config.Config, logger *zap.Logger, shiftID, actingUserID string) (*sheetsclient.PublishedRoster, error) {
	if cfg.Roster.SpreadsheetID == "" {
		return nil, apperr.Validation("roster.spreadsheetID is not configured")
	}

	err := database.InTx(ctx, func(ctx context.Context, q db.Queries) error {
		_, err := resolver(cfg, logger).RequireRole(ctx, q, actingUserID, authz.Shift(shiftID), db.ElevatedOrgRoles...)
		return err
	})
	if err != nil {
		return nil, err
	}

	roster, err := BuildRoster(ctx, database, cfg, logger, shiftID, actingUserID)
	if err != nil {
		return nil, err
	}

	published := ToPublishedRoster(roster)
	if err := publisher.PublishRoster(cfg.Roster.SpreadsheetID, published); err != nil {
		return nil, fmt.Errorf("failed to publish roster: %w", err)
	}

	logger.Info("Roster published",
		zap.String("shift_id", shiftID),
		zap.String("spreadsheet_id", cfg.Roster.SpreadsheetID),
		zap.Int("slots", len(published.Rows)))

	return published, nil
}

// ToPublishedRoster converts a roster into the sheet layout
func ToPublishedRoster(roster *Roster) *sheetsclient.PublishedRoster {
	published := &sheetsclient.PublishedRoster{
		Title: roster.Shift.Title,
		Start: roster.Shift.StartTime,
		End:   roster.Shift.EndTime,
		Rows:  make([]sheetsclient.PublishedRosterRow, 0, len(roster.Slots)),
	}
	for _, slot := range roster.Slots {
		published.Rows = append(published.Rows, sheetsclient.PublishedRosterRow{
			Position:   slot.Position,
			Required:   slot.Required,
			Pending:    slot.Pending,
			Volunteers: slot.Confirmed,
		})
	}
	return published
}
