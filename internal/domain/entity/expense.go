package entity

import "time"

// ExpenseStatus is the lifecycle state of a tax return (expense).
// APPROVED and REJECTED are terminal; COMMITTEE_APPROVED is the intermediate
// state a high-value expense passes through while waiting for director
// sign-off.
type ExpenseStatus string

const (
	ExpensePending           ExpenseStatus = "PENDING"
	ExpenseCommitteeApproved ExpenseStatus = "COMMITTEE_APPROVED"
	ExpenseApproved          ExpenseStatus = "APPROVED"
	ExpenseRejected          ExpenseStatus = "REJECTED"
)

var validExpenseStatuses = map[ExpenseStatus]bool{
	ExpensePending:           true,
	ExpenseCommitteeApproved: true,
	ExpenseApproved:          true,
	ExpenseRejected:          true,
}

// IsValid returns true if the status is a known expense status.
func (s ExpenseStatus) IsValid() bool {
	return validExpenseStatuses[s]
}

// IsTerminal returns true if no further transitions may leave the status.
func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseApproved || s == ExpenseRejected
}

// String returns the string representation of the status.
func (s ExpenseStatus) String() string {
	return string(s)
}

// ApprovalEntity is the reviewing body a submitter selects when filing an
// expense: either their coach or the committee (comitet).
type ApprovalEntity string

const (
	ApprovalCoach   ApprovalEntity = "COACH"
	ApprovalComitet ApprovalEntity = "COMITET"
)

// IsValid returns true if the approval entity is a known value.
func (a ApprovalEntity) IsValid() bool {
	return a == ApprovalCoach || a == ApprovalComitet
}

// ApprovalType is the role tier computed by policy as required to approve an
// expense. It is either the submitter's selected entity (low amounts) or
// COMMITTEE_LEAD (amounts above the low threshold).
type ApprovalType string

const (
	ApprovalTypeCoach         ApprovalType = "COACH"
	ApprovalTypeComitet       ApprovalType = "COMITET"
	ApprovalTypeCommitteeLead ApprovalType = "COMMITTEE_LEAD"
)

// RequiredRole returns the minimum role allowed to act on an expense routed
// to this approval type. The comitet is reviewed by its lead.
func (t ApprovalType) RequiredRole() Role {
	switch t {
	case ApprovalTypeCoach:
		return RoleCoach
	case ApprovalTypeComitet, ApprovalTypeCommitteeLead:
		return RoleCommitteeLead
	default:
		return RoleAdmin
	}
}

// IsValid returns true if the approval type is a known value.
func (t ApprovalType) IsValid() bool {
	switch t {
	case ApprovalTypeCoach, ApprovalTypeComitet, ApprovalTypeCommitteeLead:
		return true
	}
	return false
}

// ExpenseCategory classifies an expense for policy evaluation.
type ExpenseCategory string

const (
	CategoryGeneral        ExpenseCategory = "GENERAL"
	CategoryTravel         ExpenseCategory = "TRAVEL"
	CategoryRepresentation ExpenseCategory = "REPRESENTATION"
)

// IsValid returns true if the category is a known value.
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryTravel, CategoryRepresentation:
		return true
	}
	return false
}

// Expense is a tax return: the reimbursement request derived from a receipt.
//
// FinalApprovalType and RequiresDirectorApproval are computed once by the
// policy engine at creation and are immutable afterwards; re-deriving them
// at review time would let an approver game the route. Amounts are fixed
// point cents, never compared as floats. Version supports optimistic
// compare-and-set status updates.
type Expense struct {
	ID                        int64           `json:"id"`
	DocumentID                int64           `json:"document_id"`
	SupplierName              string          `json:"supplier_name"`
	TotalAmountCents          int64           `json:"total_amount_cents"`
	PurchaseDate              time.Time       `json:"purchase_date"`
	Category                  ExpenseCategory `json:"category"`
	Notes                     string          `json:"notes"`
	SubmitterID               int64           `json:"submitter_id"`
	UserSelectedApproval      ApprovalEntity  `json:"user_selected_approval"`
	FinalApprovalType         ApprovalType    `json:"final_approval_type"`
	RequiresDirectorApproval  bool            `json:"requires_director_approval"`
	Status                    ExpenseStatus   `json:"status"`
	Version                   int64           `json:"-"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// TotalAmount returns the amount in currency units for display purposes.
func (e *Expense) TotalAmount() float64 {
	return float64(e.TotalAmountCents) / 100.0
}

// ExpenseHistory is one immutable record of a workflow transition.
type ExpenseHistory struct {
	ID             int64     `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	ActorID        int64     `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	CreatedAt      time.Time `json:"created_at"`
}
