package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/volts/pkg/core/cascade"
	"github.com/jakechorley/volts/pkg/core/services"
)

// CreateOrgCmd creates the createOrg command
func CreateOrgCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createOrg <name>",
		Short: "Create an organization with you as its admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			description, _ := cmd.Flags().GetString("description")
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")
			address, _ := cmd.Flags().GetString("address")

			org, err := services.CreateOrganization(app.Ctx, app.Database, app.Cfg, app.Logger, services.OrganizationInput{
				Name:        args[0],
				Description: description,
				Email:       email,
				Phone:       phone,
				Address:     address,
			}, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Organization created successfully!\n\n")
			fmt.Printf("Organization ID: %s\n", org.ID)
			fmt.Printf("Name:            %s\n\n", org.Name)
			return nil
		},
	}

	cmd.Flags().String("description", "", "Organization description")
	cmd.Flags().String("email", "", "Contact email")
	cmd.Flags().String("phone", "", "Contact phone number")
	cmd.Flags().String("address", "", "Postal address")

	return cmd
}

// ListOrgsCmd creates the listOrgs command
func ListOrgsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listOrgs",
		Short: "List the organizations you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			orgs, err := services.ListOrganizationsForUser(app.Ctx, app.Database, actor)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d organizations:\n\n", len(orgs))
			for _, o := range orgs {
				role, err := services.GetUserRole(app.Ctx, app.Database, o.ID, actor)
				if err != nil {
					return err
				}
				fmt.Printf("- %s (%s) - %s\n", o.Name, o.ID, role)
			}
			fmt.Println()
			return nil
		},
	}
}

// ListMembersCmd creates the listMembers command
func ListMembersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMembers <org_id>",
		Short: "List the members of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			members, err := services.ListMembers(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n%-38s  %-38s  %-8s  %s\n", "Member ID", "User ID", "Role", "Joined")
			fmt.Println("--------------------------------------  --------------------------------------  --------  ----------")
			for _, m := range members {
				fmt.Printf("%-38s  %-38s  %-8s  %s\n", m.ID, m.UserID, m.Role, m.JoinedAt.Format("2006-01-02"))
			}
			fmt.Println()
			return nil
		},
	}
}

// InviteMemberCmd creates the inviteMember command
func InviteMemberCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inviteMember <org_id> <email> <role>",
		Short: "Add a registered user to an organization (MEMBER, LEADER or ADMIN)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			member, err := services.InviteMember(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], args[2], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %s is a %s of the organization\n", args[1], member.Role)
			fmt.Printf("Member ID: %s\n\n", member.ID)
			return nil
		},
	}
}

// JoinOrgCmd creates the joinOrg command
func JoinOrgCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "joinOrg <org_id>",
		Short: "Join an organization as a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			member, err := services.JoinOrganization(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Joined as %s (member %s)\n\n", member.Role, member.ID)
			return nil
		},
	}
}

// LeaveOrgCmd creates the leaveOrg command
func LeaveOrgCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "leaveOrg <org_id>",
		Short: "Leave an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			result, err := services.LeaveOrganization(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], actor)
			if err != nil {
				return err
			}

			if !result.WasMember {
				fmt.Println("You are not a member of this organization - nothing to do.")
				return nil
			}

			fmt.Printf("\n✓ Left the organization\n")
			printCascade(result)
			return nil
		},
	}
}

// RemoveMemberCmd creates the removeMember command
func RemoveMemberCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "removeMember <org_id> <member_id>",
		Short: "Remove a member from an organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			result, err := services.RemoveMember(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], actor)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Member removed\n")
			printCascade(result)
			return nil
		},
	}
}

// ChangeRoleCmd creates the changeRole command
func ChangeRoleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "changeRole <org_id> <member_id> <role>",
		Short: "Change a member's organization role",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}

			member, err := services.ChangeMemberRole(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1], args[2], actor)
			if err != nil {
				return err
			}

			app.Logger.Debug("changeRole command", zap.String("member_id", member.ID))
			fmt.Printf("\n✓ Member %s is now %s\n\n", member.ID, member.Role)
			return nil
		},
	}
}

func printCascade(result *services.LeaveResult) {
	switch result.Cascade {
	case cascade.OutcomePromoteLeaders:
		fmt.Printf("⚠️  No admin was left: promoted %d leaders to ADMIN\n", len(result.Promoted))
		for _, id := range result.Promoted {
			fmt.Printf("  ✓ %s\n", id)
		}
	case cascade.OutcomeDeleteOrganization:
		fmt.Println("⚠️  Nobody left to run it: the organization has been deleted")
	}
	fmt.Println()
}
