package ingest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

func rosterCSV(t *testing.T, rows []map[string]string) []byte {
	t.Helper()
	return renderCSV(t, RosterColumns(), rows)
}

func importRoster(t *testing.T, svc *Service, rows []map[string]string) (*Report, error) {
	t.Helper()
	return svc.ImportStudents(context.Background(), ImportRequest{
		Reader:   bytes.NewReader(rosterCSV(t, rows)),
		FileName: "roster.csv",
	})
}

func TestImportStudents_DerivesFields(t *testing.T) {
	svc, st := newTestService(t, Options{})

	report, err := importRoster(t, svc, []map[string]string{
		{
			ColMapNumber: "20230045", ColName: "PATEL  RAJ KUMAR", ColBranchCode: "06",
			"SEM1": "2", "SEM2": "2", "SEM3": "1",
			ColEmail: " Raj.Patel@Example.com ", ColGender: "M",
		},
		{
			ColMapNumber: "20220011", ColName: "Shah Meera", ColBranchCode: "16",
			"SEM1": "2", "SEM2": "2", "SEM3": "2", "SEM4": "2", "SEM5": "2", "SEM6": "2", "SEM7": "2", "SEM8": "2",
			ColIsComplete: "true", ColIsPassAll: "YES",
		},
		{ColMapNumber: "20230050", ColName: "Desai Kiran", ColBranchCode: "06", ColIsCancel: "1"},
		{ColMapNumber: "20230051", ColName: "Joshi Anil", ColBranchCode: "06", ColTermClose: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Created)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)

	got := map[string]domain.Student{}
	for _, s := range st.Students() {
		got[s.EnrollmentNo] = s
	}

	raj := got["20230045"]
	assert.Equal(t, "RAJ", raj.FirstName)
	assert.Equal(t, "KUMAR", raj.MiddleName)
	assert.Equal(t, "PATEL", raj.LastName)
	assert.Equal(t, "PATEL RAJ KUMAR", raj.FullName)
	assert.Equal(t, "20230045@gppalanpur.in", raj.InstitutionalEmail)
	assert.Equal(t, "raj.patel@example.com", raj.PersonalEmail)
	assert.Equal(t, 2023, raj.AdmissionYear)
	assert.Equal(t, 4, raj.CurrentSemester)
	assert.Equal(t, "2023-2026", raj.Batch)
	assert.Equal(t, "dept-ce", raj.DepartmentID)
	assert.Equal(t, domain.SemesterPending, raj.SemesterStatus.Get(3))
	assert.Equal(t, domain.SemesterNotAttempted, raj.SemesterStatus.Get(4))
	assert.Equal(t, domain.StudentActive, raj.Status)

	meera := got["20220011"]
	assert.Equal(t, "Meera", meera.FirstName)
	assert.Equal(t, "Shah", meera.LastName)
	assert.Equal(t, 8, meera.CurrentSemester, "capped at program length")
	assert.Equal(t, "2022-2026", meera.Batch)
	assert.Equal(t, domain.StudentGraduated, meera.Status)

	assert.Equal(t, domain.StudentDropped, got["20230050"].Status)
	assert.Equal(t, domain.StudentInactive, got["20230051"].Status)
}

func TestImportStudents_SixSemesterProgramIgnoresLaterColumns(t *testing.T) {
	svc, st := newTestService(t, Options{})

	_, err := importRoster(t, svc, []map[string]string{{
		ColMapNumber: "20230045", ColName: "Patel Raj", ColBranchCode: "06",
		"SEM1": "2", "SEM7": "2", "SEM8": "2",
	}})
	require.NoError(t, err)

	s := st.Students()[0]
	assert.Equal(t, 2, s.CurrentSemester)
	assert.Equal(t, domain.SemesterNotAttempted, s.SemesterStatus.Get(7))
}

func TestImportStudents_RowIssues(t *testing.T) {
	svc, st := newTestService(t, Options{})

	report, err := importRoster(t, svc, []map[string]string{
		{ColMapNumber: "20230001", ColName: "Patel Raj", ColBranchCode: "06"},
		{ColMapNumber: "", ColName: "No Number", ColBranchCode: "06"},
		{ColMapNumber: "20230002", ColName: "Shah Meera", ColBranchCode: "99"},
		{ColMapNumber: "20230003", ColName: "Bad Mail", ColBranchCode: "06", ColEmail: "not-an-email"},
		{ColMapNumber: "20230001", ColName: "Patel Raj Again", ColBranchCode: "06"},
		{ColMapNumber: "20230004", ColName: "", ColBranchCode: "06"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ProcessedCount)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, 2, report.Errors[0].Row)
	assert.Equal(t, "ROW001", report.Errors[0].Code)
	assert.Equal(t, 4, report.Errors[1].Row)
	assert.Equal(t, "ROW003", report.Errors[1].Code)
	assert.Equal(t, 6, report.Errors[2].Row)

	require.Len(t, report.Warnings, 2)
	assert.Equal(t, 3, report.Warnings[0].Row)
	assert.Equal(t, "ROW002", report.Warnings[0].Code)
	assert.Equal(t, 5, report.Warnings[1].Row)
	assert.Equal(t, "ROW004", report.Warnings[1].Code)

	assert.Len(t, st.Students(), 1)
}

func TestImportStudents_IdempotentAndKeepsIdentity(t *testing.T) {
	svc, st := newTestService(t, Options{})
	rows := []map[string]string{
		{ColMapNumber: "20230001", ColName: "Patel Raj", ColBranchCode: "06", "SEM1": "2"},
		{ColMapNumber: "20230002", ColName: "Shah Meera", ColBranchCode: "16"},
	}

	_, err := importRoster(t, svc, rows)
	require.NoError(t, err)
	before := st.Students()

	// a linked user survives a re-import
	linked := before[0]
	linked.UserID = "user-1"
	_, err = st.UpsertStudent(context.Background(), &linked)
	require.NoError(t, err)

	report, err := importRoster(t, svc, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Updated)

	after := st.Students()
	require.Len(t, after, 2)
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].CurrentSemester, after[i].CurrentSemester)
	}
	assert.Equal(t, "user-1", after[0].UserID)
}

type countingDepartments struct {
	store.Departments
	calls int
	err   error
}

func (c *countingDepartments) DepartmentByCode(ctx context.Context, code string) (domain.Department, error) {
	c.calls++
	if c.err != nil {
		return domain.Department{}, c.err
	}
	return c.Departments.DepartmentByCode(ctx, code)
}

func TestDepartmentResolver_CachesHitsAndMisses(t *testing.T) {
	_, st := newTestService(t, Options{})
	src := &countingDepartments{Departments: st}
	r := NewDepartmentResolver(src)
	ctx := context.Background()

	for range 100 {
		for _, code := range []string{"06", "16", "99", " 06 "} {
			_, _, err := r.Resolve(ctx, code)
			require.NoError(t, err)
		}
	}

	d, found, err := r.Resolve(ctx, "16")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dept-it", d.ID)

	_, found, err = r.Resolve(ctx, "99")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 3, r.Lookups())
}

func TestDepartmentResolver_LookupFailureIsNotCached(t *testing.T) {
	_, st := newTestService(t, Options{})
	src := &countingDepartments{Departments: st, err: store.Unavailable(errors.New("dial tcp: connection refused"))}
	r := NewDepartmentResolver(src)

	_, _, err := r.Resolve(context.Background(), "06")
	assert.ErrorIs(t, err, store.ErrUnavailable)

	src.err = nil
	_, found, err := r.Resolve(context.Background(), "06")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, src.calls)
}

func TestImportStudents_UnreachableDepartmentsStopRun(t *testing.T) {
	_, st := newTestService(t, Options{})
	broken := &brokenDepartments{Store: st}
	svc := NewService(broken, Options{})

	report, err := svc.ImportStudents(context.Background(), ImportRequest{
		Reader: bytes.NewReader(rosterCSV(t, []map[string]string{
			{ColMapNumber: "20230001", ColName: "Patel Raj", ColBranchCode: "06"},
		})),
	})
	assert.True(t, IsPersistence(err))
	require.NotNil(t, report)
	assert.Equal(t, 0, report.ProcessedCount)
	assert.Empty(t, st.Students())
}

type brokenDepartments struct {
	store.Store
}

func (brokenDepartments) DepartmentByCode(context.Context, string) (domain.Department, error) {
	return domain.Department{}, store.Unavailable(errors.New("connection refused"))
}
