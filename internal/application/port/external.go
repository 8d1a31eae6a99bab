package port

import (
	"context"
	"time"
)

// ReceiptFields is the structured result produced by the extraction
// collaborator for one receipt. Zero-value fields mean the extractor could
// not find the value; the document service decides whether that is fatal.
type ReceiptFields struct {
	SupplierName string
	PurchaseDate time.Time
	AmountCents  int64
	Confidence   float64
	RawResponse  string
}

// ReceiptExtractor extracts structured fields from an uploaded receipt
// file. Implementations call out to an external OCR/vision capability; the
// workflow core never depends on how extraction happens.
type ReceiptExtractor interface {
	Extract(ctx context.Context, filePath, contentType string) (*ReceiptFields, error)
}

// FileStorage defines file storage operations for uploaded receipts
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}
