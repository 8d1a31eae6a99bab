package entity

import "time"

// DocumentStatus is the extraction lifecycle state of an uploaded receipt.
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "UPLOADED"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentExtracted  DocumentStatus = "EXTRACTED"
	DocumentFailed     DocumentStatus = "FAILED"
)

// IsTerminal returns true once extraction has finished, successfully or not.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentExtracted || s == DocumentFailed
}

// Document represents an uploaded receipt file and its extraction state.
// The extraction collaborator owns the lifecycle: UPLOADED → PROCESSING →
// EXTRACTED | FAILED, each step taken exactly once. The workflow core only
// reads documents.
//
// Invariants: the extracted fields (SupplierName, PurchaseDate,
// TotalAmountCents) are populated only when Status is EXTRACTED, and
// ErrorMessage is non-empty iff Status is FAILED.
type Document struct {
	ID               int64          `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	ContentType      string         `json:"content_type"`
	FileSize         int64          `json:"file_size"`
	FilePath         string         `json:"-"`
	Status           DocumentStatus `json:"processing_status"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	SupplierName     *string        `json:"supplier_name,omitempty"`
	PurchaseDate     *time.Time     `json:"purchase_date,omitempty"`
	TotalAmountCents *int64         `json:"total_amount_cents,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
