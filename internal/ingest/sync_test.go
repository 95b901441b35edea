package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

func TestSyncStudentUsers(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	// an unlinked record imported from a roster
	_, err := st.UpsertStudent(ctx, &domain.Student{
		EnrollmentNo: "20260007", FullName: "Old Name", InstitutionalEmail: "20260007@gppalanpur.in",
		DepartmentID: "dept-ce", DepartmentCode: "06",
		AdmissionYear: 2026, CurrentSemester: 1, Status: domain.StudentActive,
	})
	require.NoError(t, err)

	withNumber := st.AddUser(domain.User{FullName: "Patel Raj Kumar", Email: "Raj@Example.com", Roles: []string{domain.RoleStudent}, DepartmentCode: "06", EnrollmentNo: "20240010"})
	noNumber := st.AddUser(domain.User{FullName: "Shah Meera", Roles: []string{domain.RoleStudent}, DepartmentCode: "16"})
	st.AddUser(domain.User{FullName: "No Dept", Roles: []string{domain.RoleStudent}})
	st.AddUser(domain.User{FullName: "Unknown Dept", Roles: []string{domain.RoleStudent}, DepartmentCode: "99"})
	claims := st.AddUser(domain.User{FullName: "Desai Kiran", Roles: []string{domain.RoleStudent}, DepartmentCode: "06", EnrollmentNo: "20260007"})
	st.AddUser(domain.User{FullName: "Faculty Member", Roles: []string{"faculty"}, DepartmentCode: "06"})

	report, err := svc.SyncStudentUsers(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalRows)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, 3, report.Warnings[0].Row)
	assert.Equal(t, 4, report.Warnings[1].Row)

	students := st.Students()
	require.Len(t, students, 3)

	byUser := map[string]domain.Student{}
	for _, s := range students {
		byUser[s.UserID] = s
	}

	raj := byUser[withNumber.ID]
	assert.Equal(t, "20240010", raj.EnrollmentNo)
	assert.Equal(t, 2024, raj.AdmissionYear)
	assert.Equal(t, "raj@example.com", raj.PersonalEmail)
	assert.Equal(t, "2024-2027", raj.Batch)

	meera := byUser[noNumber.ID]
	assert.Equal(t, "20260008", meera.EnrollmentNo, "allocated after the greatest existing number")
	assert.Equal(t, "20260008@gppalanpur.in", meera.InstitutionalEmail)
	assert.Equal(t, "2026-2030", meera.Batch)

	kiran := byUser[claims.ID]
	assert.Equal(t, "20260007", kiran.EnrollmentNo)
	assert.Equal(t, "Desai Kiran", kiran.FullName)
	assert.Equal(t, "Kiran", kiran.FirstName)

	// a second pass only refreshes
	again, err := svc.SyncStudentUsers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 3, again.Updated)
	assert.Len(t, st.Students(), 3)
}

func TestSyncStudentUsers_EnrollmentLinkedElsewhere(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	_, err := st.UpsertStudent(ctx, &domain.Student{
		EnrollmentNo: "20250001", FullName: "Patel Raj", DepartmentID: "dept-ce",
		AdmissionYear: 2025, CurrentSemester: 1, Status: domain.StudentActive, UserID: "someone-else",
	})
	require.NoError(t, err)
	st.AddUser(domain.User{FullName: "Shah Meera", Roles: []string{domain.RoleStudent}, DepartmentCode: "06", EnrollmentNo: "20250001"})

	report, err := svc.SyncStudentUsers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "ROW005", report.Errors[0].Code)
	assert.Equal(t, "someone-else", st.Students()[0].UserID)
}

func TestSyncStudentUsers_ConcurrentAllocationsAreUnique(t *testing.T) {
	svc, st := newTestService(t, Options{SubBatchSize: 25})

	for range 60 {
		st.AddUser(domain.User{FullName: "Patel Raj", Roles: []string{domain.RoleStudent}, DepartmentCode: "16"})
	}

	report, err := svc.SyncStudentUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 60, report.Created)

	seen := map[string]bool{}
	for _, s := range st.Students() {
		assert.False(t, seen[s.EnrollmentNo], "duplicate %s", s.EnrollmentNo)
		seen[s.EnrollmentNo] = true
	}
	assert.True(t, seen["20260001"])
	assert.True(t, seen["20260060"])
}

func TestSyncStudentUsers_AllocatesPastRosterNumbers(t *testing.T) {
	svc, st := newTestService(t, Options{})
	ctx := context.Background()

	first := st.AddUser(domain.User{FullName: "Shah Meera", Roles: []string{domain.RoleStudent}, DepartmentCode: "16"})
	report, err := svc.SyncStudentUsers(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)

	// roster rows take the following numbers without going through the counter
	rows := make([]map[string]string, 0, 9)
	for seq := 2; seq <= 10; seq++ {
		rows = append(rows, map[string]string{
			ColMapNumber:  fmt.Sprintf("2026%04d", seq),
			ColName:       "Patel Raj",
			ColBranchCode: "06",
		})
	}
	roster, err := importRoster(t, svc, rows)
	require.NoError(t, err)
	require.Equal(t, 9, roster.Created)

	second := st.AddUser(domain.User{FullName: "Desai Kiran", Roles: []string{domain.RoleStudent}, DepartmentCode: "06"})
	report, err = svc.SyncStudentUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Created)

	byUser := map[string]string{}
	for _, s := range st.Students() {
		byUser[s.UserID] = s.EnrollmentNo
	}
	assert.Equal(t, "20260001", byUser[first.ID])
	assert.Equal(t, "20260011", byUser[second.ID])
}
