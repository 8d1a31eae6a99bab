// Package policy computes the approval route for an expense at creation
// time. The engine is a pure function of the expense attributes and the
// configured amount thresholds; it performs no I/O and is called exactly
// once per expense.
package policy

import (
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// Thresholds configures the amount bands of the routing policy, in cents.
// Band boundaries are inclusive-low: an amount exactly equal to a threshold
// falls into the lower band.
type Thresholds struct {
	LowCents  int64
	HighCents int64
}

// Route is the policy output attached to an expense when it is created.
type Route struct {
	FinalApprovalType        entity.ApprovalType
	RequiresDirectorApproval bool
}

// Engine maps expense attributes to a required approval route.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a policy engine with the given thresholds.
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Route computes the approval route for an expense. It is total for
// well-formed input (amountCents >= 0, known category, valid selection):
//
//   - amount <= low: the submitter's selected body decides alone
//   - low < amount <= high: committee lead review is mandatory
//   - amount > high: committee lead review plus a director sign-off
func (e *Engine) Route(amountCents int64, category entity.ExpenseCategory, selected entity.ApprovalEntity) Route {
	_ = category // categories share one amount policy today

	switch {
	case amountCents <= e.thresholds.LowCents:
		return Route{
			FinalApprovalType:        entity.ApprovalType(selected),
			RequiresDirectorApproval: false,
		}
	case amountCents <= e.thresholds.HighCents:
		return Route{
			FinalApprovalType:        entity.ApprovalTypeCommitteeLead,
			RequiresDirectorApproval: false,
		}
	default:
		return Route{
			FinalApprovalType:        entity.ApprovalTypeCommitteeLead,
			RequiresDirectorApproval: true,
		}
	}
}
