package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// maxUploadSize caps receipt uploads at 20 MB.
const maxUploadSize = 20 << 20

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// DocumentService manages uploaded receipt documents. Extraction itself is
// performed asynchronously by the extraction worker; callers poll GetByID
// until the document reaches a terminal status.
type DocumentService interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) (*entity.Document, error)
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
}

type documentServiceImpl struct {
	documentRepo port.DocumentRepository
	storage      port.FileStorage
	logger       Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(documentRepo port.DocumentRepository, storage port.FileStorage, logger Logger) DocumentService {
	return &documentServiceImpl{
		documentRepo: documentRepo,
		storage:      storage,
		logger:       logger,
	}
}

// Upload stores the receipt file and creates the document record in
// UPLOADED status.
func (s *documentServiceImpl) Upload(ctx context.Context, filename, contentType string, content []byte) (*entity.Document, error) {
	if filename == "" {
		return nil, &entity.ValidationError{Field: "file", Reason: "filename required"}
	}
	if len(content) == 0 {
		return nil, &entity.ValidationError{Field: "file", Reason: "empty file"}
	}
	if len(content) > maxUploadSize {
		return nil, &entity.ValidationError{Field: "file", Reason: "file exceeds maximum size"}
	}
	if !allowedContentTypes[contentType] {
		return nil, &entity.ValidationError{Field: "file", Reason: fmt.Sprintf("unsupported content type %q", contentType)}
	}

	now := time.Now()
	relativePath := filepath.Join("receipts", fmt.Sprintf("%d_%s", now.UnixNano(), filepath.Base(filename)))
	if err := s.storage.Save(ctx, relativePath, content); err != nil {
		s.logger.Error("Failed to store receipt file", "error", err, "filename", filename)
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	doc := &entity.Document{
		OriginalFilename: filename,
		ContentType:      contentType,
		FileSize:         int64(len(content)),
		FilePath:         relativePath,
		Status:           entity.DocumentUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create document record", "error", err, "filename", filename)
		return nil, err
	}

	s.logger.Info("Document uploaded", "id", doc.ID, "filename", filename, "size", doc.FileSize)
	return doc, nil
}

// GetByID returns one document.
func (s *documentServiceImpl) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &entity.NotFoundError{Kind: "document", ID: id}
	}
	return doc, nil
}
