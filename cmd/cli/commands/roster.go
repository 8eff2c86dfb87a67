package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/services"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// staffingColor picks the cell color for a slot: green when full, yellow when
// at least half staffed, red otherwise
func staffingColor(confirmed, required int, green, yellow, red string) string {
	switch {
	case confirmed >= required:
		return green
	case confirmed*2 >= required:
		return yellow
	default:
		return red
	}
}

// rosterTotals sums confirmed and required places across the roster
func rosterTotals(roster *services.Roster) (confirmed, required int) {
	for _, slot := range roster.Slots {
		confirmed += min(len(slot.Confirmed), slot.Required)
		required += slot.Required
	}
	return confirmed, required
}

// ViewRosterCmd creates the viewRoster command
func ViewRosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewRoster <shift_id>",
		Short: "View who is confirmed for each position on a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			app.Logger.Debug("viewRoster command", zap.String("shift_id", args[0]))

			roster, err := services.BuildRoster(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n%s\n", roster.Shift.Title)
			fmt.Printf("%s to %s  [%s]\n\n", formatTime(roster.Shift.StartTime), formatTime(roster.Shift.EndTime), roster.Shift.Status)

			// Calculate column widths
			positionColWidth := 12
			for _, slot := range roster.Slots {
				if len(slot.Position) > positionColWidth {
					positionColWidth = len(slot.Position)
				}
			}
			positionColWidth += 2
			filledColWidth := 10

			fmt.Printf("%-*s%-*s%-9s%s\n", positionColWidth, "Position", filledColWidth, "Filled", "Pending", "Volunteers")
			fmt.Println(strings.Repeat("-", positionColWidth+filledColWidth+9+30))

			for _, slot := range roster.Slots {
				color := staffingColor(len(slot.Confirmed), slot.Required, colorGreen, colorYellow, colorRed)
				filled := fmt.Sprintf("%d/%d", len(slot.Confirmed), slot.Required)

				volunteers := fmt.Sprintf("%s—%s", colorDim, colorReset)
				if len(slot.Confirmed) > 0 {
					volunteers = strings.Join(slot.Confirmed, ", ")
				}

				fmt.Printf("%-*s%s%-*s%s%-9d%s\n",
					positionColWidth, slot.Position,
					color, filledColWidth, filled, colorReset,
					slot.Pending, volunteers)
			}

			confirmed, required := rosterTotals(roster)
			fmt.Println()
			fmt.Printf("Staffed: %d of %d places\n", confirmed, required)

			// Legend
			fmt.Println()
			fmt.Println("Legend:")
			fmt.Printf("  %sX/Y%s = fully staffed\n", colorGreen, colorReset)
			fmt.Printf("  %sX/Y%s = at least half staffed\n", colorYellow, colorReset)
			fmt.Printf("  %sX/Y%s = less than half staffed\n", colorRed, colorReset)

			return nil
		},
	}
}

// PublishRosterCmd creates the publishRoster command
func PublishRosterCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishRoster <shift_id>",
		Short: "Publish a shift's roster to Google Sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			client, err := app.SheetsClient()
			if err != nil {
				return err
			}

			published, err := services.PublishRoster(app.Ctx, app.Database, client, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return fmt.Errorf("failed to publish roster: %w", err)
			}

			fmt.Printf("\n✅ Roster Published Successfully\n\n")
			fmt.Printf("Shift:    %s\n", published.Title)
			fmt.Printf("Start:    %s\n", formatTime(published.Start))
			fmt.Printf("Sheet ID: %s\n\n", app.Cfg.Roster.SpreadsheetID)

			fmt.Printf("%-20s  %-10s  %s\n", "Position", "Filled", "Volunteers")
			fmt.Println("--------------------  ----------  ----------------------------------------")
			for _, row := range published.Rows {
				fmt.Printf("%-20s  %-10s  %s\n",
					row.Position,
					fmt.Sprintf("%d/%d", len(row.Volunteers), row.Required),
					orDash(strings.Join(row.Volunteers, ", ")))
			}

			fmt.Println()
			fmt.Println("✅ Roster has been published to Google Sheets.")
			return nil
		},
	}
}
