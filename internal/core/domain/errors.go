package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor recognises a file signature.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrImportInProgress indicates another writer holds the corpus.
	ErrImportInProgress = errors.New("import in progress")

	// ErrEmptyContent indicates a document produced no text.
	ErrEmptyContent = errors.New("empty content")

	// ErrStoreClosed indicates the corpus store has been closed.
	ErrStoreClosed = errors.New("store closed")
)

// ExtractionReason classifies why a document could not be extracted.
type ExtractionReason string

// Extraction failure reasons.
const (
	ReasonCorrupt     ExtractionReason = "corrupt"
	ReasonUnsupported ExtractionReason = "unsupported"
	ReasonEncoding    ExtractionReason = "encoding"
	ReasonEmpty       ExtractionReason = "empty"
	ReasonIO          ExtractionReason = "io"
)

// ExtractionError reports a source file that could not be turned into text.
// It is recoverable: the file is skipped and reported.
type ExtractionError struct {
	Path   string
	Format Format
	Reason ExtractionReason
	Err    error
}

// NewExtractionError creates an ExtractionError.
func NewExtractionError(path string, format Format, reason ExtractionReason, err error) *ExtractionError {
	return &ExtractionError{Path: path, Format: format, Reason: reason, Err: err}
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// StoreIOError reports that the persistence layer could not complete an
// operation. Already-committed data is unaffected.
type StoreIOError struct {
	Op  string
	Err error
}

// NewStoreIOError wraps err as a StoreIOError unless it already is one.
func NewStoreIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	var sErr *StoreIOError
	if errors.As(err, &sErr) {
		return err
	}
	return &StoreIOError{Op: op, Err: err}
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error {
	return e.Err
}

// IsStoreIOError reports whether err is or wraps a StoreIOError.
func IsStoreIOError(err error) bool {
	var sErr *StoreIOError
	return errors.As(err, &sErr)
}

// IndexInconsistency describes a mismatch between the corpus store and the
// derived index. It triggers a rebuild and is never returned to callers.
type IndexInconsistency struct {
	// Reason is a short machine-readable description.
	Reason string

	// Mismatched is the number of passages whose postings disagree with the store.
	Mismatched int
}

func (e *IndexInconsistency) Error() string {
	if e.Mismatched > 0 {
		return fmt.Sprintf("index inconsistent: %s (%d passages)", e.Reason, e.Mismatched)
	}
	return "index inconsistent: " + e.Reason
}
