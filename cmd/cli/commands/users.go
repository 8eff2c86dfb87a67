package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/services"
)

// CreateUserCmd creates the createUser command
func CreateUserCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "createUser <name> <email>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := services.CreateUser(app.Ctx, app.Database, app.Logger, services.UserInput{
				Name:  args[0],
				Email: args[1],
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ User created successfully!\n\n")
			fmt.Printf("User ID: %s\n", user.ID)
			fmt.Printf("Name:    %s\n", user.Name)
			fmt.Printf("Email:   %s\n\n", user.Email)
			return nil
		},
	}
}

// ActAsCmd creates the actAs command
func ActAsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "actAs <user_id>",
		Short: "Run the following commands as the given user (interactive sessions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := services.GetUser(app.Ctx, app.Database, args[0])
			if err != nil {
				return err
			}

			app.ActingUserID = user.ID
			app.Logger.Debug("Acting user changed", zap.String("user_id", user.ID))

			fmt.Printf("Now acting as %s (%s)\n\n", user.Name, user.Email)
			return nil
		},
	}
}
