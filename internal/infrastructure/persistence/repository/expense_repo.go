package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository over sqlite
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, document_id, supplier_name, total_amount_cents, purchase_date,
	category, notes, submitter_id, user_selected_approval,
	final_approval_type, requires_director_approval, status, version,
	created_at, updated_at
`

// Create inserts a new tax return
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO tax_returns (
			document_id, supplier_name, total_amount_cents, purchase_date,
			category, notes, submitter_id, user_selected_approval,
			final_approval_type, requires_director_approval, status, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		expense.DocumentID,
		expense.SupplierName,
		expense.TotalAmountCents,
		expense.PurchaseDate,
		string(expense.Category),
		expense.Notes,
		expense.SubmitterID,
		string(expense.UserSelectedApproval),
		string(expense.FinalApprovalType),
		expense.RequiresDirectorApproval,
		string(expense.Status),
		expense.Version,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create tax return", zap.Error(err))
		return fmt.Errorf("failed to create tax return: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves a tax return by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM tax_returns WHERE id = ?`

	expense, err := r.scanExpense(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tax return", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get tax return: %w", err)
	}
	return expense, nil
}

// GetByDocumentID retrieves the tax return created from a document
func (r *ExpenseRepository) GetByDocumentID(ctx context.Context, documentID int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM tax_returns WHERE document_id = ?`

	expense, err := r.scanExpense(r.getExecutor(ctx).QueryRowContext(ctx, query, documentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get tax return by document", zap.Int64("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get tax return: %w", err)
	}
	return expense, nil
}

// UpdateStatusCAS performs an optimistic compare-and-set of the status keyed
// on the record version. Zero affected rows means a concurrent transition
// committed first; the caller decides how to report that.
func (r *ExpenseRepository) UpdateStatusCAS(ctx context.Context, id, version int64, status entity.ExpenseStatus) (bool, error) {
	query := `
		UPDATE tax_returns
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, string(status), id, version)
	if err != nil {
		r.logger.Error("Failed to update tax return status",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// ListByStatus retrieves tax returns with the given status, newest first
func (r *ExpenseRepository) ListByStatus(ctx context.Context, status entity.ExpenseStatus) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM tax_returns WHERE status = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, string(status))
	if err != nil {
		r.logger.Error("Failed to list tax returns", zap.String("status", status.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list tax returns: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tax return: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ExpenseRepository) scanExpense(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	var category, selected, approvalType, status string

	err := row.Scan(
		&expense.ID,
		&expense.DocumentID,
		&expense.SupplierName,
		&expense.TotalAmountCents,
		&expense.PurchaseDate,
		&category,
		&expense.Notes,
		&expense.SubmitterID,
		&selected,
		&approvalType,
		&expense.RequiresDirectorApproval,
		&status,
		&expense.Version,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.Category = entity.ExpenseCategory(category)
	expense.UserSelectedApproval = entity.ApprovalEntity(selected)
	expense.FinalApprovalType = entity.ApprovalType(approvalType)
	expense.Status = entity.ExpenseStatus(status)
	return &expense, nil
}

// getExecutor returns the transaction from the context when present
func (r *ExpenseRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
