package ingest

import (
	"github.com/go-faster/errors"
)

// ErrTooManyRuns is returned when every run slot is busy and the wait
// timeout expires. Callers should retry after a short delay.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// ErrBatchIDRequired is returned by DeleteBatch for a blank batch ID.
var ErrBatchIDRequired = errors.New("batch id is required")

// StructuralError means the upload as a whole is unusable: it could not be
// decoded, has no data rows, or lacks a required column. Nothing was written.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	return "cannot import file: " + e.Err.Error()
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// PersistenceError means the store became unreachable during a run. Rows
// written before the failure remain; Report holds what was done.
type PersistenceError struct {
	Err    error
	Report *Report
}

func (e *PersistenceError) Error() string {
	return "import interrupted: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
