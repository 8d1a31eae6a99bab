package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/authz"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/internal/domain/policy"
	"github.com/expensehub/approval-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateExpenseInput is the validated shape a finalized submission step
// produces. Amounts are fixed point cents.
type CreateExpenseInput struct {
	DocumentID           int64
	SupplierName         string
	TotalAmountCents     int64
	PurchaseDate         time.Time
	Category             entity.ExpenseCategory
	UserSelectedApproval entity.ApprovalEntity
	Notes                string
}

// ExpenseService drives the approval workflow over tax returns.
type ExpenseService interface {
	// Submit creates a tax return from an extracted document plus user
	// input, computes its approval route, and sets it PENDING.
	Submit(ctx context.Context, input CreateExpenseInput, submitter *entity.User) (*entity.Expense, error)

	// Approve advances the expense one approval step for the acting user.
	Approve(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error)

	// Reject finalizes the expense as REJECTED in a single step.
	Reject(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error)

	// GetByID returns one expense.
	GetByID(ctx context.Context, expenseID int64) (*entity.Expense, error)

	// ListByStatus returns expenses with the given status, most recently
	// created first.
	ListByStatus(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error)

	// History returns the audit trail of workflow transitions for one
	// expense, oldest first.
	History(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error)
}

type expenseServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	documentRepo port.DocumentRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	policyEngine *policy.Engine
	logger       Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	documentRepo port.DocumentRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	policyEngine *policy.Engine,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:  expenseRepo,
		documentRepo: documentRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		policyEngine: policyEngine,
		logger:       logger,
	}
}

// Submit creates a tax return from an extracted document plus user input.
// The approval route is computed exactly once here and never re-derived.
func (s *expenseServiceImpl) Submit(ctx context.Context, input CreateExpenseInput, submitter *entity.User) (*entity.Expense, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	doc, err := s.documentRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		s.logger.Error("Failed to load document", "error", err, "document_id", input.DocumentID)
		return nil, err
	}
	if doc == nil {
		return nil, &entity.NotFoundError{Kind: "document", ID: input.DocumentID}
	}

	switch doc.Status {
	case entity.DocumentExtracted:
		// ok
	case entity.DocumentFailed:
		return nil, &entity.ExtractionFailedError{DocumentID: doc.ID, Message: doc.ErrorMessage}
	default:
		return nil, &entity.ValidationError{Field: "document_id", Reason: fmt.Sprintf("document is still %s", doc.Status)}
	}

	existing, err := s.expenseRepo.GetByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &entity.ValidationError{Field: "document_id", Reason: "document already has a tax return"}
	}

	route := s.policyEngine.Route(input.TotalAmountCents, input.Category, input.UserSelectedApproval)

	now := time.Now()
	expense := &entity.Expense{
		DocumentID:               doc.ID,
		SupplierName:             input.SupplierName,
		TotalAmountCents:         input.TotalAmountCents,
		PurchaseDate:             input.PurchaseDate,
		Category:                 input.Category,
		Notes:                    input.Notes,
		SubmitterID:              submitter.ID,
		UserSelectedApproval:     input.UserSelectedApproval,
		FinalApprovalType:        route.FinalApprovalType,
		RequiresDirectorApproval: route.RequiresDirectorApproval,
		Status:                   entity.ExpensePending,
		Version:                  1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create tax return: %w", err)
		}

		history := &entity.ExpenseHistory{
			ExpenseID:      expense.ID,
			ActorID:        submitter.ID,
			PreviousStatus: "",
			NewStatus:      entity.ExpensePending.String(),
			Action:         "SUBMIT",
			CreatedAt:      now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit tax return", "error", err, "document_id", doc.ID)
		return nil, err
	}

	s.logger.Info("Tax return submitted",
		"id", expense.ID,
		"document_id", doc.ID,
		"final_approval_type", string(expense.FinalApprovalType),
		"requires_director_approval", expense.RequiresDirectorApproval)
	return expense, nil
}

// Approve advances the expense one approval step.
func (s *expenseServiceImpl) Approve(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
	return s.transition(ctx, expenseID, actor, workflow.TriggerApprove, entity.ExpenseApproved)
}

// Reject finalizes the expense as REJECTED.
func (s *expenseServiceImpl) Reject(ctx context.Context, expenseID int64, actor *entity.User) (*entity.Expense, error) {
	return s.transition(ctx, expenseID, actor, workflow.TriggerReject, entity.ExpenseRejected)
}

// transition runs one approve/reject step: authorization, the state machine,
// then a compare-and-set commit. The CAS guarantees at most one winning
// transition per record; the loser observes AlreadyFinalizedError and the
// record is never partially updated.
func (s *expenseServiceImpl) transition(ctx context.Context, expenseID int64, actor *entity.User, trigger workflow.Trigger, target entity.ExpenseStatus) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		s.logger.Error("Failed to load tax return", "error", err, "id", expenseID)
		return nil, err
	}
	if expense == nil {
		return nil, &entity.NotFoundError{Kind: "tax return", ID: expenseID}
	}

	if expense.Status.IsTerminal() {
		return nil, &entity.AlreadyFinalizedError{ExpenseID: expenseID, Status: expense.Status}
	}

	if !authz.CanTransition(actor.Role, expense, target) {
		return nil, &entity.ForbiddenError{Reason: fmt.Sprintf("role %s cannot %s this tax return", actor.Role, trigger)}
	}

	machine := workflow.BuildExpenseStateMachine(expense)
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return nil, &entity.AlreadyFinalizedError{ExpenseID: expenseID, Status: expense.Status}
		}
		return nil, err
	}
	newStatus := entity.ExpenseStatus(machine.State())

	previousStatus := expense.Status
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		applied, err := s.expenseRepo.UpdateStatusCAS(txCtx, expense.ID, expense.Version, newStatus)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !applied {
			// A concurrent transition committed first.
			return &entity.AlreadyFinalizedError{ExpenseID: expense.ID, Status: previousStatus}
		}

		history := &entity.ExpenseHistory{
			ExpenseID:      expense.ID,
			ActorID:        actor.ID,
			PreviousStatus: previousStatus.String(),
			NewStatus:      newStatus.String(),
			Action:         trigger.String(),
			CreatedAt:      time.Now(),
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		return nil
	})
	if err != nil {
		var finalized *entity.AlreadyFinalizedError
		if !errors.As(err, &finalized) {
			s.logger.Error("Failed to transition tax return", "error", err, "id", expenseID, "trigger", trigger.String())
		}
		return nil, err
	}

	expense.Status = newStatus
	expense.Version++
	expense.UpdatedAt = time.Now()

	s.logger.Info("Tax return transitioned",
		"id", expense.ID,
		"actor_id", actor.ID,
		"from", previousStatus.String(),
		"to", newStatus.String())
	return expense, nil
}

// GetByID returns one expense.
func (s *expenseServiceImpl) GetByID(ctx context.Context, expenseID int64) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, &entity.NotFoundError{Kind: "tax return", ID: expenseID}
	}
	return expense, nil
}

// ListByStatus returns expenses with the given status, newest first.
func (s *expenseServiceImpl) ListByStatus(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error) {
	if !status.IsValid() {
		return nil, &entity.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return s.expenseRepo.ListByStatus(ctx, status)
}

// History returns the transition audit trail for one expense.
func (s *expenseServiceImpl) History(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, &entity.NotFoundError{Kind: "tax return", ID: expenseID}
	}
	return s.historyRepo.GetByExpenseID(ctx, expenseID)
}

func validateCreateInput(input CreateExpenseInput) error {
	if input.DocumentID <= 0 {
		return &entity.ValidationError{Field: "document_id", Reason: "required"}
	}
	if input.SupplierName == "" {
		return &entity.ValidationError{Field: "supplier_name", Reason: "required"}
	}
	if input.TotalAmountCents <= 0 {
		return &entity.ValidationError{Field: "total_amount", Reason: "must be positive"}
	}
	if input.PurchaseDate.IsZero() {
		return &entity.ValidationError{Field: "purchase_date", Reason: "required"}
	}
	if !input.Category.IsValid() {
		return &entity.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", input.Category)}
	}
	if !input.UserSelectedApproval.IsValid() {
		return &entity.ValidationError{Field: "user_selected_approval", Reason: "must be COACH or COMITET"}
	}
	return nil
}
