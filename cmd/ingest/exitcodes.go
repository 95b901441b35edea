package main

import (
	"context"
	"errors"

	"github.com/milavdabgar/gpp-ingest/internal/ingest"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitPartial    = 5
	exitCancelled  = 130
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// exitCode picks the process status for err. Explicit codes win; otherwise
// the ingest error kinds are mapped.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case ingest.IsStructural(err):
		return exitValidation
	case ingest.IsPersistence(err), errors.Is(err, store.ErrUnavailable):
		return exitDB
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitCancelled
	case errors.Is(err, ingest.ErrBatchIDRequired):
		return exitUsage
	}
	return exitFailure
}
