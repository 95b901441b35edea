package ingest

import (
	"fmt"
	"sort"
	"time"
)

// Severity classifies a row failure.
type Severity int

const (
	// SeverityError marks a row that could not be imported because of its own data.
	SeverityError Severity = iota

	// SeverityWarning marks a row that was skipped for a recoverable reason.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// RowFailure explains why a row was not written.
type RowFailure struct {
	Row      int
	Severity Severity
	Code     string
	Message  string
	Err      error
}

func (f *RowFailure) Error() string {
	return fmt.Sprintf("row %d: %s", f.Row, f.Message)
}

func (f *RowFailure) Unwrap() error {
	return f.Err
}

// rowError builds a hard failure from err, coding it through MapError.
func rowError(row int, err error) *RowFailure {
	return &RowFailure{
		Row:      row,
		Severity: SeverityError,
		Code:     MapError(err).Code,
		Message:  err.Error(),
		Err:      err,
	}
}

// rowWarning builds a soft failure.
func rowWarning(row int, code, format string, args ...any) *RowFailure {
	return &RowFailure{
		Row:      row,
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

// RowResult is the outcome of normalizing one row: a value ready to write
// or the reason the row is skipped.
type RowResult[T any] struct {
	Row     int
	Value   T
	Failure *RowFailure
}

// Ok wraps a normalized value.
func Ok[T any](row int, v T) RowResult[T] {
	return RowResult[T]{Row: row, Value: v}
}

// Fail wraps a row failure.
func Fail[T any](f *RowFailure) RowResult[T] {
	return RowResult[T]{Row: f.Row, Failure: f}
}

// Issue is one entry of a report's errors or warnings.
type Issue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID          string        `json:"runId"`
	Kind           string        `json:"kind"`
	BatchID        string        `json:"batchId,omitempty"`
	TotalRows      int           `json:"totalRows"`
	ProcessedCount int           `json:"processedCount"`
	Created        int           `json:"created"`
	Updated        int           `json:"updated"`
	Duplicates     int           `json:"duplicates"`
	Errors         []Issue       `json:"errors"`
	Warnings       []Issue       `json:"warnings"`
	Cancelled      bool          `json:"cancelled,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationMillis int64         `json:"durationMs"`
}

func newReport(runID string, kind Kind, total int) *Report {
	return &Report{
		RunID:     runID,
		Kind:      string(kind),
		TotalRows: total,
		Errors:    []Issue{},
		Warnings:  []Issue{},
	}
}

// add records a row failure in errors or warnings.
func (r *Report) add(f *RowFailure) {
	issue := Issue{Row: f.Row, Message: f.Message, Code: f.Code}
	if f.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, issue)
	} else {
		r.Errors = append(r.Errors, issue)
	}
}

// finish sorts diagnostics by row and stamps the duration.
func (r *Report) finish(started time.Time) {
	byRow := func(issues []Issue) {
		sort.SliceStable(issues, func(i, j int) bool { return issues[i].Row < issues[j].Row })
	}
	byRow(r.Errors)
	byRow(r.Warnings)
	r.Duration = time.Since(started)
	r.DurationMillis = r.Duration.Milliseconds()
}

// HasIssues reports whether any row was skipped.
func (r *Report) HasIssues() bool {
	return len(r.Errors) > 0 || len(r.Warnings) > 0 || r.Duplicates > 0
}
