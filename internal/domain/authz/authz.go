// Package authz supplies the capability checks the workflow engine consults
// before each transition. Decisions are made from the actor's current role,
// read fresh at decision time; nothing here caches.
package authz

import (
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// CanTransition reports whether an actor with the given role may move the
// expense to the target status from its current state.
//
// APPROVED is reachable only by a role at or above the expense's required
// approver role. When the director flag is set, approval is a two step
// gate: a qualifying approver first moves the expense to the intermediate
// COMMITTEE_APPROVED status, and only a DIRECTOR or higher completes the
// transition to terminal APPROVED.
//
// REJECTED is reachable by any role at or above the required approver role
// at any point before a terminal state; rejection never needs the director
// step.
func CanTransition(role entity.Role, expense *entity.Expense, target entity.ExpenseStatus) bool {
	if expense == nil || expense.Status.IsTerminal() {
		return false
	}

	required := expense.FinalApprovalType.RequiredRole()

	switch target {
	case entity.ExpenseApproved, entity.ExpenseCommitteeApproved:
		if expense.Status == entity.ExpenseCommitteeApproved {
			// Final director sign-off on a high-value expense.
			return role.AtLeast(entity.RoleDirector)
		}
		return role.AtLeast(required)
	case entity.ExpenseRejected:
		return role.AtLeast(required)
	default:
		return false
	}
}

// CanAssignRoles reports whether the actor may change another user's role.
func CanAssignRoles(role entity.Role) bool {
	return role == entity.RoleAdmin
}
