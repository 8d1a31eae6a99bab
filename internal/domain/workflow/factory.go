package workflow

import (
	"context"

	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// BuildExpenseStateMachine creates a state machine for one expense, seeded
// at its current status. High-value expenses take the two step path through
// COMMITTEE_APPROVED; all other approvals finalize in one step. Rejection is
// always a single step from any non-terminal state.
func BuildExpenseStateMachine(expense *entity.Expense) StateMachine {
	builder := NewBuilder()

	requiresDirector := expense.RequiresDirectorApproval

	builder.Configure(StatePending).
		PermitIf(TriggerApprove, StateCommitteeApproved, func(context.Context) bool { return requiresDirector }).
		PermitIf(TriggerApprove, StateApproved, func(context.Context) bool { return !requiresDirector }).
		Permit(TriggerReject, StateRejected)

	builder.Configure(StateCommitteeApproved).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	// APPROVED and REJECTED are terminal - no outgoing transitions

	return builder.Build(State(expense.Status))
}
