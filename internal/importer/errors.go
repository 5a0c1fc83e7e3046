package importer

import (
	"fmt"
)

// Row error codes reported in ImportResult.Errors
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeDuplicateKey = "DUPLICATE_KEY"
	CodeLookupFailed = "LOOKUP_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
)

// FileReadError means the upload could not be parsed at all
type FileReadError struct {
	File string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.File, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// EmptyFileError means the upload parsed but held no data rows
type EmptyFileError struct {
	File string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("%s contains no data rows", e.File)
}

// RowValidationError rejects a single row
type RowValidationError struct {
	Row     int
	Field   string
	Message string
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// TaxonomyCreationError is logged and never fails the row
type TaxonomyCreationError struct {
	Category    string
	Subcategory string
	Err         error
}

func (e *TaxonomyCreationError) Error() string {
	if e.Subcategory != "" {
		return fmt.Sprintf("taxonomy %q/%q: %v", e.Category, e.Subcategory, e.Err)
	}
	return fmt.Sprintf("taxonomy %q: %v", e.Category, e.Err)
}

func (e *TaxonomyCreationError) Unwrap() error { return e.Err }

// DuplicateKeyError is a unique-constraint violation on a single record write
type DuplicateKeyError struct {
	Row int
	Err error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("row %d: duplicate report: %v", e.Row, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// BatchWriteError is a failed bulk write; it triggers per-record fallback
type BatchWriteError struct {
	Batch int
	Size  int
	Err   error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("batch %d (%d records): %v", e.Batch, e.Size, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }

// UnexpectedPipelineError aborts the run
type UnexpectedPipelineError struct {
	Cause interface{}
}

func (e *UnexpectedPipelineError) Error() string {
	return fmt.Sprintf("unexpected import failure: %v", e.Cause)
}

func (e *UnexpectedPipelineError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
