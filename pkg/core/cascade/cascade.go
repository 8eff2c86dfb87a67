// Package cascade keeps an organization governable after a member leaves.
//
// Once the departing membership is removed, the remaining members decide the
// outcome: no members, or no ADMIN and no LEADER, dissolves the organization;
// LEADERs without an ADMIN are all promoted to ADMIN; otherwise nothing changes.
package cascade

import (
	"context"
	"fmt"

	"github.com/jakechorley/volts/pkg/db"
)

// Outcome is the structural change a departure causes
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePromoteLeaders
	OutcomeDeleteOrganization
)

func (o Outcome) String() string {
	switch o {
	case OutcomePromoteLeaders:
		return "promote_leaders"
	case OutcomeDeleteOrganization:
		return "delete_organization"
	default:
		return "none"
	}
}

// Decide picks the outcome for the members left after a departure
func Decide(remaining []db.OrganizationMember) Outcome {
	var admins, leaders int
	for _, m := range remaining {
		switch m.Role {
		case db.OrgRoleAdmin:
			admins++
		case db.OrgRoleLeader:
			leaders++
		}
	}

	switch {
	case len(remaining) == 0:
		return OutcomeDeleteOrganization
	case admins > 0:
		return OutcomeNone
	case leaders > 0:
		return OutcomePromoteLeaders
	default:
		return OutcomeDeleteOrganization
	}
}

// Store is the access needed to apply an outcome
type Store interface {
	ListMembers(ctx context.Context, organizationID string) ([]db.OrganizationMember, error)
	PromoteMembers(ctx context.Context, organizationID string, from, to db.OrganizationRole) (int, error)
	DeleteOrganization(ctx context.Context, id string) error
}

// Result describes what Run did
type Result struct {
	Outcome Outcome
	// Promoted holds the user ids rewritten from LEADER to ADMIN
	Promoted []string
}

// Run decides and applies the outcome for the organization's current members.
// It must run in the same transaction that removed the departing membership.
func Run(ctx context.Context, q Store, organizationID string) (*Result, error) {
	remaining, err := q.ListMembers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remaining members: %w", err)
	}

	result := &Result{Outcome: Decide(remaining)}
	switch result.Outcome {
	case OutcomeDeleteOrganization:
		if err := q.DeleteOrganization(ctx, organizationID); err != nil {
			return nil, fmt.Errorf("failed to delete organization: %w", err)
		}
	case OutcomePromoteLeaders:
		for _, m := range remaining {
			if m.Role == db.OrgRoleLeader {
				result.Promoted = append(result.Promoted, m.UserID)
			}
		}
		n, err := q.PromoteMembers(ctx, organizationID, db.OrgRoleLeader, db.OrgRoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to promote leaders: %w", err)
		}
		if n != len(result.Promoted) {
			return nil, fmt.Errorf("promoted %d leaders, expected %d", n, len(result.Promoted))
		}
	}
	return result, nil
}
