package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/milavdabgar/gpp-ingest/internal/derive"
	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/store"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
)

// Defaults applied by NewService to unset options.
const (
	DefaultMaxSemester       = 8
	DefaultBatchListLimit    = 20
	DefaultInstitutionDomain = "gppalanpur.in"
)

// Options configures a Service.
type Options struct {
	// SubBatchSize is the number of concurrent writes per sub-batch.
	SubBatchSize int

	// InstitutionDomain is the mail domain of institutional addresses.
	InstitutionDomain string

	// DefaultMaxSemester is the program length used for departments that do
	// not declare their own.
	DefaultMaxSemester int

	// AllocatorRetries bounds enrollment number re-allocation after a collision.
	AllocatorRetries int

	// BatchListLimit is the number of batches returned by ListBatches.
	BatchListLimit int

	// MaxFileSize rejects larger uploads (0 = unlimited).
	MaxFileSize int64

	// MaxConcurrentRuns and MaxWait configure the run limiter.
	MaxConcurrentRuns int
	MaxWait           time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.SubBatchSize <= 0 {
		o.SubBatchSize = DefaultSubBatchSize
	}
	if o.InstitutionDomain == "" {
		o.InstitutionDomain = DefaultInstitutionDomain
	}
	if o.DefaultMaxSemester <= 0 || o.DefaultMaxSemester > domain.MaxSemesterSlots {
		o.DefaultMaxSemester = DefaultMaxSemester
	}
	if o.AllocatorRetries <= 0 {
		o.AllocatorRetries = DefaultAllocatorRetries
	}
	if o.BatchListLimit <= 0 {
		o.BatchListLimit = DefaultBatchListLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// WriteMode selects how result rows are written.
type WriteMode int

const (
	// ModeUpsert creates or updates each result by natural key.
	ModeUpsert WriteMode = iota

	// ModeInsert bulk-inserts results and counts existing keys as duplicates.
	ModeInsert
)

func (m WriteMode) String() string {
	if m == ModeInsert {
		return "insert"
	}
	return "upsert"
}

// ParseWriteMode converts "upsert" or "insert" to a WriteMode.
func ParseWriteMode(s string) (WriteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upsert":
		return ModeUpsert, nil
	case "insert":
		return ModeInsert, nil
	default:
		return ModeUpsert, fmt.Errorf("unknown write mode %q (want upsert or insert)", s)
	}
}

// ImportRequest describes one upload.
type ImportRequest struct {
	Reader   io.Reader
	FileName string
	Format   tabular.Format
	Mode     WriteMode // results only
	Progress ProgressFunc
}

// Service runs imports, exports and batch maintenance against a store.
type Service struct {
	store     store.Store
	opts      Options
	limiter   *RunLimiter
	allocator *Allocator
}

// NewService returns a service backed by st.
func NewService(st store.Store, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:     st,
		opts:      opts,
		limiter:   NewRunLimiter(opts.MaxConcurrentRuns, opts.MaxWait),
		allocator: NewAllocator(st, opts.Now),
	}
}

// beginRun takes a run slot and tags ctx with a fresh run ID. The returned
// func releases the slot.
func (s *Service) beginRun(ctx context.Context) (context.Context, string, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ctx, "", nil, err
	}
	getMetrics().activeRuns.Inc()

	runID := uuid.NewString()
	release := func() {
		getMetrics().activeRuns.Dec()
		s.limiter.Release()
	}
	return logging.ContextWithRunID(ctx, runID), runID, release, nil
}

// endRun finalizes the report and records metrics and a summary log line.
func (s *Service) endRun(ctx context.Context, kind Kind, report *Report, err error, started time.Time) {
	m := getMetrics()
	m.runsTotal.WithLabelValues(string(kind), runStatus(report, err)).Inc()
	m.runDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())

	log := logging.WithFields(ctx, logrus.Fields{"kind": kind})
	if report == nil {
		log.WithError(err).Error("import rejected")
		return
	}
	report.finish(started)
	log = log.WithFields(logrus.Fields{
		"total":      report.TotalRows,
		"processed":  report.ProcessedCount,
		"created":    report.Created,
		"updated":    report.Updated,
		"duplicates": report.Duplicates,
		"errors":     len(report.Errors),
		"warnings":   len(report.Warnings),
		"duration":   report.Duration.String(),
	})
	if report.BatchID != "" {
		log = log.WithField("batch", report.BatchID)
	}
	if err != nil {
		log.WithError(err).Error("import finished with failure")
		return
	}
	log.Info("import finished")
}

// decode turns an upload into rows and checks the required header columns.
func (s *Service) decode(req ImportRequest, required []string) (*tabular.Table, error) {
	if req.Reader == nil {
		return nil, &StructuralError{Err: fmt.Errorf("%w: no input", tabular.ErrEmpty)}
	}
	table, err := tabular.Decode(req.Reader, tabular.Options{
		FileName: req.FileName,
		Format:   req.Format,
		MaxBytes: s.opts.MaxFileSize,
	})
	if err != nil {
		return nil, &StructuralError{Err: err}
	}
	if missing := table.Header.Missing(required...); len(missing) > 0 {
		return nil, &StructuralError{Err: fmt.Errorf("missing required column: %s", strings.Join(missing, ", "))}
	}
	return table, nil
}

// errMissing is the row error for a blank mandatory column.
func errMissing(column string) error {
	return fmt.Errorf("required field %s is empty", column)
}

// newStudent builds a student with every field derived from the enrollment
// number, the raw full name and the department.
func (s *Service) newStudent(enrollmentNo, fullName string, dept domain.Department, statuses domain.SemesterStatuses) *domain.Student {
	maxSem := dept.MaxSemester(s.opts.DefaultMaxSemester)
	parts := derive.ParseFullName(fullName)
	year := derive.AdmissionYearAt(enrollmentNo, s.opts.Now())

	return &domain.Student{
		EnrollmentNo:       enrollmentNo,
		FirstName:          parts.First,
		MiddleName:         parts.Middle,
		LastName:           parts.Last,
		FullName:           strings.Join(strings.Fields(fullName), " "),
		InstitutionalEmail: derive.InstitutionalEmail(enrollmentNo, s.opts.InstitutionDomain),
		DepartmentID:       dept.ID,
		DepartmentCode:     dept.Code,
		AdmissionYear:      year,
		Batch:              derive.BatchRange(year, maxSem),
		SemesterStatus:     statuses,
		CurrentSemester:    derive.CurrentSemester(statuses, maxSem),
		Status:             domain.StudentActive,
	}
}
