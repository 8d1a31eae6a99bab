package port

import (
	"context"
	"time"

	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense (tax return)
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	GetByDocumentID(ctx context.Context, documentID int64) (*entity.Expense, error)

	// UpdateStatusCAS performs an optimistic compare-and-set of the expense
	// status keyed on the record version. It returns false without error when
	// the version no longer matches, meaning a concurrent transition won.
	UpdateStatusCAS(ctx context.Context, id int64, version int64, status entity.ExpenseStatus) (bool, error)

	// ListByStatus returns expenses with the given status, most recently
	// created first.
	ListByStatus(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error)
}

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id int64) (*entity.Document, error)

	// ClaimForProcessing moves a document from UPLOADED to PROCESSING.
	// Returns false when the document was already claimed.
	ClaimForProcessing(ctx context.Context, id int64) (bool, error)

	// GetUploaded returns documents still waiting for extraction.
	GetUploaded(ctx context.Context, limit int) ([]*entity.Document, error)

	// SetExtracted records a successful extraction result.
	SetExtracted(ctx context.Context, id int64, supplier string, purchaseDate time.Time, amountCents int64) error

	// SetFailed records a terminal extraction failure.
	SetFailed(ctx context.Context, id int64, errorMessage string) error
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByToken(ctx context.Context, token string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	UpdateRole(ctx context.Context, id int64, role entity.Role) error
}

// HistoryRepository defines persistence operations for ExpenseHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ExpenseHistory) error
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
