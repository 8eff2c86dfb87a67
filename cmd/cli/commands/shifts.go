package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/services"
	"github.com/jakechorley/volts/pkg/db"
)

// CreateShiftCmd creates the createShift command
func CreateShiftCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createShift <group_id> <title> <start> <end>",
		Short: "Create a single shift (times as RFC3339 or \"YYYY-MM-DD HH:MM\" UTC)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			start, err := parseTimeArg(args[2])
			if err != nil {
				return err
			}
			end, err := parseTimeArg(args[3])
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")

			shift, err := services.CreateShift(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], services.ShiftInput{
				Title:     args[1],
				Notes:     notes,
				StartTime: start,
				EndTime:   end,
			}, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift created successfully!\n\n")
			printShift(shift)
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Notes for volunteers")

	return cmd
}

// CreateRecurringShiftsCmd creates the createRecurringShifts command
func CreateRecurringShiftsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createRecurringShifts <group_id>",
		Short: "Create a series of shifts from an RRULE or a configured template",
		Long: `Create a series of shifts from an RFC 5545 recurrence rule, e.g.

  createRecurringShifts <group_id> --rrule "FREQ=WEEKLY;BYDAY=SU;COUNT=4" --start "2026-03-08 11:00" --duration 3h --title "Sunday lunch"

or from a template defined under shifts.templates in the config:

  createRecurringShifts <group_id> --template lunch --start "2026-03-08 11:00"

The rule must be bounded by COUNT or UNTIL. Each --position gets a slot on every shift.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			template, _ := cmd.Flags().GetString("template")
			rrule, _ := cmd.Flags().GetString("rrule")
			startStr, _ := cmd.Flags().GetString("start")
			duration, _ := cmd.Flags().GetDuration("duration")
			title, _ := cmd.Flags().GetString("title")
			notes, _ := cmd.Flags().GetString("notes")
			positionIDs, _ := cmd.Flags().GetStringSlice("position")

			var start time.Time
			if startStr != "" {
				start, err = parseTimeArg(startStr)
				if err != nil {
					return err
				}
			}

			app.Logger.Debug("createRecurringShifts command",
				zap.String("template", template),
				zap.String("rrule", rrule),
				zap.Strings("positions", positionIDs))

			var shifts []db.Shift
			switch {
			case template != "" && rrule != "":
				return errors.New("use either --template or --rrule, not both")
			case template != "":
				if start.IsZero() {
					return errors.New("--start is required with --template")
				}
				shifts, err = services.CreateShiftsFromTemplate(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], template, start, positionIDs, actor)
			case rrule != "":
				shifts, err = services.CreateRecurringShifts(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], services.RecurringShiftInput{
					RRule:       rrule,
					Start:       start,
					Duration:    duration,
					Title:       title,
					Notes:       notes,
					PositionIDs: positionIDs,
				}, actor)
			default:
				return errors.New("one of --template or --rrule is required")
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Created %d shifts\n\n", len(shifts))
			for i, s := range shifts {
				fmt.Printf("  %2d. %s  %s (%s)\n", i+1, formatTime(s.StartTime), s.Title, s.ID)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("template", "", "Name of a configured shift template")
	cmd.Flags().String("rrule", "", "Recurrence rule bounded by COUNT or UNTIL")
	cmd.Flags().String("start", "", "First occurrence (optional if the rule has DTSTART)")
	cmd.Flags().Duration("duration", 0, "Length of each shift, e.g. 3h")
	cmd.Flags().String("title", "", "Shift title")
	cmd.Flags().String("notes", "", "Notes for volunteers")
	cmd.Flags().StringSlice("position", nil, "Position to open a slot for (repeatable)")

	return cmd
}

// ListShiftsCmd creates the listShifts command
func ListShiftsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listShifts <group_id>",
		Short: "List a group's shifts by start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			shifts, err := services.ListShifts(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n%-22s  %-10s  %-30s  %s\n", "Start", "Status", "Title", "Shift ID")
			fmt.Println("----------------------  ----------  ------------------------------  ------------------------------------")
			for _, s := range shifts {
				fmt.Printf("%-22s  %-10s  %-30s  %s\n", formatTime(s.StartTime), s.Status, s.Title, s.ID)
			}
			fmt.Println()
			return nil
		},
	}
}

// SetShiftStatusCmd creates the setShiftStatus command
func SetShiftStatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setShiftStatus <shift_id> <status>",
		Short: "Move a shift to OPEN, CLOSED, COMPLETED or CANCELLED",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			shift, err := services.SetShiftStatus(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift %s is now %s\n\n", shift.ID, shift.Status)
			return nil
		},
	}
}

// DeleteShiftCmd creates the deleteShift command
func DeleteShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteShift <shift_id>",
		Short: "Delete a shift with its slots and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			if err := services.DeleteShift(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor); err != nil {
				return err
			}

			fmt.Printf("\n✓ Shift %s deleted\n\n", args[0])
			return nil
		},
	}
}

// AddShiftPositionCmd creates the addShiftPosition command
func AddShiftPositionCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addShiftPosition <shift_id> <position_id> [required_count]",
		Short: "Open a slot for a position on a shift",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			required := 0
			if len(args) > 2 {
				required, err = strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("required_count must be a number: %w", err)
				}
			}

			sp, err := services.AddShiftPosition(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], required, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Slot opened\n\n")
			fmt.Printf("Shift Position ID: %s\n", sp.ID)
			fmt.Printf("Required:          %d\n\n", sp.RequiredCount)
			return nil
		},
	}
}

// SetRequiredCountCmd creates the setRequiredCount command
func SetRequiredCountCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setRequiredCount <shift_position_id> <required_count>",
		Short: "Change how many volunteers a slot needs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			required, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("required_count must be a number: %w", err)
			}

			sp, err := services.UpdateRequiredCount(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], required, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Slot %s now needs %d (%d confirmed)\n\n", sp.ID, sp.RequiredCount, sp.VolunteersCount)
			return nil
		},
	}
}

// RemoveShiftPositionCmd creates the removeShiftPosition command
func RemoveShiftPositionCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "removeShiftPosition <shift_position_id>",
		Short: "Remove a slot and its assignments from a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			if err := services.RemoveShiftPosition(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor); err != nil {
				return err
			}

			fmt.Printf("\n✓ Slot %s removed\n\n", args[0])
			return nil
		},
	}
}

func printShift(s *db.Shift) {
	fmt.Printf("Shift ID: %s\n", s.ID)
	fmt.Printf("Title:    %s\n", s.Title)
	fmt.Printf("Start:    %s\n", formatTime(s.StartTime))
	fmt.Printf("End:      %s\n", formatTime(s.EndTime))
	fmt.Printf("Status:   %s\n", s.Status)
	if s.Notes != "" {
		fmt.Printf("Notes:    %s\n", s.Notes)
	}
}
