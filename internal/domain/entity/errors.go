package entity

import "fmt"

// The workflow core reports failures through this typed taxonomy. All errors
// are returned to the caller, never swallowed; a failed transition leaves the
// record's prior state untouched.

// ValidationError reports malformed or incomplete input. The caller must
// correct the input and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced id does not exist.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ForbiddenError reports a failed authorization check. It carries no detail
// about the record beyond the signal itself.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// AlreadyFinalizedError reports a transition attempted on a record that has
// already reached a terminal status. Callers recover by re-fetching current
// state; the error distinguishes "someone else already acted" from success.
type AlreadyFinalizedError struct {
	ExpenseID int64
	Status    ExpenseStatus
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("tax return %d already finalized with status %s", e.ExpenseID, e.Status)
}

// ExtractionFailedError reports that a document never reached EXTRACTED. It
// is surfaced from the extraction collaborator and propagated unchanged.
type ExtractionFailedError struct {
	DocumentID int64
	Message    string
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for document %d: %s", e.DocumentID, e.Message)
}
