package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volts/pkg/core/services"
	"github.com/jakechorley/volts/pkg/db"
)

// ApplyCmd creates the apply command
func ApplyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <shift_position_id>",
		Short: "Apply to volunteer for a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			notes, _ := cmd.Flags().GetString("notes")

			a, err := services.ApplyForShift(app.Ctx, app.Database, app.Cfg, app.Logger, services.ApplyInput{
				ShiftPositionID: args[0],
				UserID:          actor,
				Notes:           notes,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Application received!\n\n")
			printAssignment(a)
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("notes", "", "Notes for the organizers")

	return cmd
}

// ConfirmCmd creates the confirm command
func ConfirmCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <assignment_id>",
		Short: "Confirm a pending application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			a, err := services.ConfirmAssignment(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✅ Assignment confirmed\n\n")
			printAssignment(a)
			fmt.Println()
			return nil
		},
	}
}

// CancelCmd creates the cancel command
func CancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <assignment_id>",
		Short: "Cancel an application or confirmed assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			a, err := services.CancelAssignment(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Assignment cancelled\n\n")
			printAssignment(a)
			fmt.Println()
			return nil
		},
	}
}

// DeleteAssignmentCmd creates the deleteAssignment command
func DeleteAssignmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteAssignment <assignment_id>",
		Short: "Delete an assignment record so the volunteer can apply again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			if err := services.DeleteAssignment(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor); err != nil {
				return err
			}

			fmt.Printf("\n✓ Assignment %s deleted\n\n", args[0])
			return nil
		},
	}
}

// ListAssignmentsCmd creates the listAssignments command
func ListAssignmentsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listAssignments <shift_id>",
		Short: "List the assignments on a shift (or one slot with --slot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			slot, _ := cmd.Flags().GetBool("slot")

			var assignments []db.Assignment
			if slot {
				assignments, err = services.ListAssignmentsByShiftPosition(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			} else {
				assignments, err = services.ListAssignmentsByShift(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n%-36s  %-36s  %-10s  %s\n", "Assignment ID", "User ID", "Status", "Applied")
			fmt.Println("------------------------------------  ------------------------------------  ----------  ----------------------")
			for _, a := range assignments {
				fmt.Printf("%-36s  %-36s  %-10s  %s\n", a.ID, a.UserID, a.Status, formatTime(a.AppliedAt))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("slot", false, "Treat the id as a shift position id")

	return cmd
}

func printAssignment(a *db.Assignment) {
	fmt.Printf("Assignment ID: %s\n", a.ID)
	fmt.Printf("Slot:          %s\n", a.ShiftPositionID)
	fmt.Printf("Volunteer:     %s\n", a.UserID)
	fmt.Printf("Status:        %s\n", a.Status)
	if a.ConfirmedAt != nil {
		fmt.Printf("Confirmed:     %s\n", formatTime(*a.ConfirmedAt))
	}
	if a.Notes != "" {
		fmt.Printf("Notes:         %s\n", a.Notes)
	}
}
