package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// openTestStore connects to TEST_DATABASE_URL and resets the schema's data.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{URL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.Migrate(ctx))
	_, err = s.db.Exec(ctx, `TRUNCATE exam_results, students, enrollment_counters, users, departments`)
	require.NoError(t, err)
	return s
}

func TestStore_Integration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var deptID string
	require.NoError(t, s.db.QueryRow(ctx,
		`INSERT INTO departments (code, name, program_semesters) VALUES ('06', 'Computer', 6) RETURNING id::text`,
	).Scan(&deptID))

	dept, err := s.DepartmentByCode(ctx, "06")
	require.NoError(t, err)
	assert.Equal(t, 6, dept.ProgramSemesters)
	_, err = s.DepartmentByCode(ctx, "99")
	assert.ErrorIs(t, err, store.ErrNotFound)

	st := &domain.Student{
		EnrollmentNo: "20260005", FullName: "Patel Raj", InstitutionalEmail: "20260005@gppalanpur.in",
		DepartmentID: deptID, AdmissionYear: 2026, CurrentSemester: 1, Status: domain.StudentActive,
		SemesterStatus: domain.NewSemesterStatuses(),
	}
	created, err := s.UpsertStudent(ctx, st)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertStudent(ctx, st)
	require.NoError(t, err)
	assert.False(t, created)

	assert.ErrorIs(t, s.CreateStudent(ctx, st), store.ErrDuplicateKey)

	seq, err := s.NextEnrollmentSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 6, seq)

	// a number written after the counter exists is still skipped
	later := *st
	later.ID, later.EnrollmentNo, later.InstitutionalEmail = "", "20260020", "20260020@gppalanpur.in"
	_, err = s.UpsertStudent(ctx, &later)
	require.NoError(t, err)
	seq, err = s.NextEnrollmentSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 21, seq)

	r := &domain.ExamResult{
		EnrollmentNo: "20260005", ExamID: "EX", UploadBatch: "b1",
		Subjects: []domain.Subject{{Code: "1", Name: "DS", Credits: decimal.RequireFromString("4.5")}},
		SPI:      decimal.RequireFromString("7.85"),
	}
	created, err = s.UpsertResult(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	errs := s.InsertResults(ctx, []domain.ExamResult{
		{EnrollmentNo: "20260005", ExamID: "EX", UploadBatch: "b2"},
		{EnrollmentNo: "20260006", ExamID: "EX", UploadBatch: "b2"},
	})
	assert.ErrorIs(t, errs[0], store.ErrDuplicateKey)
	assert.NoError(t, errs[1])

	results, err := s.ListResults(ctx, domain.ResultFilter{ExamID: "EX"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "7.85", results[0].SPI.String())
	assert.Equal(t, "4.5", results[0].Subjects[0].Credits.String())

	batches, err := s.ListBatches(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, batches, 2)

	n, err := s.DeleteBatch(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
