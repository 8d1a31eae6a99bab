package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/internal/infrastructure/persistence/sqlite"
)

// DocumentRepository implements port.DocumentRepository over sqlite
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `
	id, original_filename, content_type, file_size, file_path, status,
	error_message, supplier_name, purchase_date, total_amount_cents,
	created_at, updated_at
`

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (
			original_filename, content_type, file_size, file_path, status,
			error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.OriginalFilename,
		doc.ContentType,
		doc.FileSize,
		doc.FilePath,
		string(doc.Status),
		doc.ErrorMessage,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := r.scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ClaimForProcessing moves a document from UPLOADED to PROCESSING. The status
// predicate in the WHERE clause makes the claim atomic across workers.
func (r *DocumentRepository) ClaimForProcessing(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE documents
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(entity.DocumentProcessing), id, string(entity.DocumentUploaded))
	if err != nil {
		r.logger.Error("Failed to claim document", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to claim document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// GetUploaded returns documents still waiting for extraction, oldest first
func (r *DocumentRepository) GetUploaded(ctx context.Context, limit int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = ? ORDER BY created_at ASC LIMIT ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, string(entity.DocumentUploaded), limit)
	if err != nil {
		r.logger.Error("Failed to list uploaded documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list uploaded documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// SetExtracted records a successful extraction result
func (r *DocumentRepository) SetExtracted(ctx context.Context, id int64, supplier string, purchaseDate time.Time, amountCents int64) error {
	query := `
		UPDATE documents
		SET status = ?, supplier_name = ?, purchase_date = ?, total_amount_cents = ?,
		    error_message = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(entity.DocumentExtracted), supplier, purchaseDate, amountCents, id)
	if err != nil {
		r.logger.Error("Failed to mark document extracted", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark document extracted: %w", err)
	}
	return nil
}

// SetFailed records a terminal extraction failure
func (r *DocumentRepository) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE documents
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(entity.DocumentFailed), errorMessage, id)
	if err != nil {
		r.logger.Error("Failed to mark document failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var status string

	err := row.Scan(
		&doc.ID,
		&doc.OriginalFilename,
		&doc.ContentType,
		&doc.FileSize,
		&doc.FilePath,
		&status,
		&doc.ErrorMessage,
		&doc.SupplierName,
		&doc.PurchaseDate,
		&doc.TotalAmountCents,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = entity.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
