package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volts/pkg/core/services"
)

// CreateGroupCmd creates the createGroup command
func CreateGroupCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createGroup <org_id> <name>",
		Short: "Create a group of shifts within an organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")

			group, err := services.CreateGroup(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], services.GroupInput{
				Name:        args[1],
				Description: description,
			}, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Group created successfully!\n\n")
			fmt.Printf("Group ID: %s\n", group.ID)
			fmt.Printf("Name:     %s\n\n", group.Name)
			return nil
		},
	}

	cmd.Flags().String("description", "", "Group description")

	return cmd
}

// ListGroupsCmd creates the listGroups command
func ListGroupsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listGroups <org_id>",
		Short: "List an organization's groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			groups, err := services.ListGroups(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d groups:\n\n", len(groups))
			for _, g := range groups {
				fmt.Printf("- %s (%s)\n", g.Name, g.ID)
			}
			fmt.Println()
			return nil
		},
	}
}

// AddGroupMemberCmd creates the addGroupMember command
func AddGroupMemberCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addGroupMember <group_id> <user_id> <role>",
		Short: "Record a legacy group role (VOLUNTEER, COORDINATOR or GROUP_LEADER)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			member, err := services.AddGroupMember(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], args[2], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ User %s is %s of the group\n", member.UserID, member.Role)
			if !app.Cfg.Authorization.LegacyGroupRoles {
				fmt.Println("⚠️  authorization.legacyGroupRoles is off, so this role grants no access")
			}
			fmt.Println()
			return nil
		},
	}
}

// CreatePositionCmd creates the createPosition command
func CreatePositionCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createPosition <group_id> <name>",
		Short: "Create a position volunteers can fill in a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")

			position, err := services.CreatePosition(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], services.PositionInput{
				Name:        args[1],
				Description: description,
			}, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Position created successfully!\n\n")
			fmt.Printf("Position ID: %s\n", position.ID)
			fmt.Printf("Name:        %s\n\n", position.Name)
			return nil
		},
	}

	cmd.Flags().String("description", "", "Position description")

	return cmd
}

// ListPositionsCmd creates the listPositions command
func ListPositionsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPositions <group_id>",
		Short: "List a group's positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			positions, err := services.ListPositions(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d positions:\n\n", len(positions))
			for _, p := range positions {
				fmt.Printf("- %s (%s) %s\n", p.Name, p.ID, p.Description)
			}
			fmt.Println()
			return nil
		},
	}
}

// DeletePositionCmd creates the deletePosition command
func DeletePositionCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deletePosition <position_id>",
		Short: "Delete a position no shift uses any more",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			if err := services.DeletePosition(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor); err != nil {
				return err
			}

			fmt.Printf("\n✓ Position %s deleted\n\n", args[0])
			return nil
		},
	}
}
