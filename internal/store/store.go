// Package store defines the persistence contract of the ingestion engine.
//
// Implementations live in sub-packages: postgres (pgx), mongo
// (mongo-driver) and memory (tests and dry runs). All of them report
// failures through the sentinel errors below so the engine can classify a
// failed write without knowing the backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means a write collided with a unique key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnavailable means the backend could not be reached. An import run
	// stops starting new work when it sees this error.
	ErrUnavailable = errors.New("store unavailable")
)

// Unavailable marks err as a connectivity failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Duplicate marks err as a unique key violation.
func Duplicate(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
}

// Departments looks up externally managed departments.
type Departments interface {
	DepartmentByCode(ctx context.Context, code string) (domain.Department, error)
}

// Students persists student records.
type Students interface {
	// UpsertStudent creates or updates the student keyed by EnrollmentNo and
	// reports whether it was created. On update the stored ID, CreatedAt and
	// an existing UserID are kept.
	UpsertStudent(ctx context.Context, s *domain.Student) (created bool, err error)

	// CreateStudent inserts a new student and fails with ErrDuplicateKey
	// when the enrollment number or user is already taken.
	CreateStudent(ctx context.Context, s *domain.Student) error

	// StudentByUserID returns the student linked to a user.
	StudentByUserID(ctx context.Context, userID string) (domain.Student, error)

	// StudentByEnrollmentNo returns the student with an enrollment number.
	StudentByEnrollmentNo(ctx context.Context, enrollmentNo string) (domain.Student, error)
}

// EnrollmentCounter hands out enrollment sequence numbers.
type EnrollmentCounter interface {
	// NextEnrollmentSequence atomically returns the next sequence for year.
	// A year without a counter is seeded from the greatest enrollment number
	// already stored for it, so the first call for a fresh year returns 1.
	NextEnrollmentSequence(ctx context.Context, year int) (int, error)
}

// Results persists exam results.
type Results interface {
	// UpsertResult creates or updates the result keyed by (EnrollmentNo,
	// ExamID) and reports whether it was created.
	UpsertResult(ctx context.Context, r *domain.ExamResult) (created bool, err error)

	// InsertResults inserts results without updating existing ones. The
	// returned slice has one entry per input; an entry wraps ErrDuplicateKey
	// when that result already existed.
	InsertResults(ctx context.Context, results []domain.ExamResult) []error

	// ListResults returns results matching filter ordered by enrollment
	// number then exam id.
	ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.ExamResult, error)
}

// Batches groups results by the upload that last wrote them.
type Batches interface {
	// ListBatches returns up to limit batches, most recent first.
	ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error)

	// DeleteBatch removes every result tagged with batchID and returns how
	// many were removed.
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}

// Users reads platform accounts.
type Users interface {
	UsersByRole(ctx context.Context, role string) ([]domain.User, error)
}

// Store is the full persistence surface used by the ingestion service.
type Store interface {
	Departments
	Students
	EnrollmentCounter
	Results
	Batches
	Users

	// Migrate prepares tables or indexes.
	Migrate(ctx context.Context) error

	// Close releases connections.
	Close(ctx context.Context) error
}
