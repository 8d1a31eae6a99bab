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

// HistoryRepository implements port.HistoryRepository over sqlite
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ExpenseHistory) error {
	query := `
		INSERT INTO tax_return_history (
			tax_return_id, actor_id, previous_status, new_status, action, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.ExpenseID,
		history.ActorID,
		history.PreviousStatus,
		history.NewStatus,
		history.Action,
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("tax_return_id", history.ExpenseID),
			zap.Error(err))
		return fmt.Errorf("failed to create history record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByExpenseID retrieves the transition history of a tax return, oldest first
func (r *HistoryRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	query := `
		SELECT id, tax_return_id, actor_id, previous_status, new_status, action, created_at
		FROM tax_return_history
		WHERE tax_return_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list history records",
			zap.Int64("tax_return_id", expenseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExpenseHistory
	for rows.Next() {
		var h entity.ExpenseHistory
		err := rows.Scan(
			&h.ID,
			&h.ExpenseID,
			&h.ActorID,
			&h.PreviousStatus,
			&h.NewStatus,
			&h.Action,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &h)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
