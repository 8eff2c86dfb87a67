package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/cmd/cli/commands"
	"github.com/jakechorley/volts/internal/config"
	"github.com/jakechorley/volts/pkg/memstore"
	"github.com/jakechorley/volts/pkg/postgres"
	"github.com/jakechorley/volts/pkg/utils/logging"
)

var (
	env     string
	actAs   string
	app     = &commands.AppContext{}
	closeDB func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "volts",
		Short: "Volts CLI - Coordinate volunteer shifts",
		Long:  `A CLI tool for running volunteer organizations: members, shifts, applications and rosters.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeDB != nil {
				closeDB()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&actAs, "as", "", "ID of the user to act as")

	// Add all commands
	rootCmd.AddCommand(commands.CreateUserCmd(app))
	rootCmd.AddCommand(commands.ActAsCmd(app))
	rootCmd.AddCommand(commands.CreateOrgCmd(app))
	rootCmd.AddCommand(commands.ListOrgsCmd(app))
	rootCmd.AddCommand(commands.ListMembersCmd(app))
	rootCmd.AddCommand(commands.InviteMemberCmd(app))
	rootCmd.AddCommand(commands.JoinOrgCmd(app))
	rootCmd.AddCommand(commands.LeaveOrgCmd(app))
	rootCmd.AddCommand(commands.RemoveMemberCmd(app))
	rootCmd.AddCommand(commands.ChangeRoleCmd(app))
	rootCmd.AddCommand(commands.CreateGroupCmd(app))
	rootCmd.AddCommand(commands.ListGroupsCmd(app))
	rootCmd.AddCommand(commands.AddGroupMemberCmd(app))
	rootCmd.AddCommand(commands.CreatePositionCmd(app))
	rootCmd.AddCommand(commands.ListPositionsCmd(app))
	rootCmd.AddCommand(commands.DeletePositionCmd(app))
	rootCmd.AddCommand(commands.CreateShiftCmd(app))
	rootCmd.AddCommand(commands.CreateRecurringShiftsCmd(app))
	rootCmd.AddCommand(commands.ListShiftsCmd(app))
	rootCmd.AddCommand(commands.SetShiftStatusCmd(app))
	rootCmd.AddCommand(commands.DeleteShiftCmd(app))
	rootCmd.AddCommand(commands.AddShiftPositionCmd(app))
	rootCmd.AddCommand(commands.SetRequiredCountCmd(app))
	rootCmd.AddCommand(commands.RemoveShiftPositionCmd(app))
	rootCmd.AddCommand(commands.ApplyCmd(app))
	rootCmd.AddCommand(commands.ConfirmCmd(app))
	rootCmd.AddCommand(commands.CancelCmd(app))
	rootCmd.AddCommand(commands.DeleteAssignmentCmd(app))
	rootCmd.AddCommand(commands.ListAssignmentsCmd(app))
	rootCmd.AddCommand(commands.ViewRosterCmd(app))
	rootCmd.AddCommand(commands.PublishRosterCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up config, logger and database
func initApp() error {
	var err error
	app.Env = env
	app.Ctx = context.Background()
	app.ActingUserID = actAs

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, app.Cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("database_driver", app.Cfg.Database.Driver))

	// Initialize database
	switch app.Cfg.Database.Driver {
	case config.DriverMemory:
		app.Logger.Warn("Using the in-memory database, records only last for this process")
		app.Database = memstore.NewStore()

	case config.DriverPostgres:
		app.Logger.Info("Connecting to database")
		pg, err := postgres.NewDB(app.Ctx, app.Cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		closeDB = pg.Close

		if app.Cfg.Database.RunMigrations {
			app.Logger.Info("Running database migrations")
			if err := pg.RunMigrations(app.Ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		app.Database = pg

	default:
		return fmt.Errorf("unknown database driver %q", app.Cfg.Database.Driver)
	}

	app.Logger.Info("Database initialized successfully")
	return nil
}
