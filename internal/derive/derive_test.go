package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

func TestSemesterStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.SemesterStatus
	}{
		{"2", domain.SemesterCleared},
		{" 2 ", domain.SemesterCleared},
		{`="2"`, domain.SemesterCleared},
		{"1", domain.SemesterPending},
		{"0", domain.SemesterNotAttempted},
		{"3", domain.SemesterNotAttempted},
		{"", domain.SemesterNotAttempted},
		{"abc", domain.SemesterNotAttempted},
		{"2.5", domain.SemesterNotAttempted},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, SemesterStatus(tt.raw))
		})
	}
}

func statuses(pairs map[int]domain.SemesterStatus) domain.SemesterStatuses {
	s := domain.NewSemesterStatuses()
	for sem, st := range pairs {
		s.Set(sem, st)
	}
	return s
}

func TestCurrentSemester(t *testing.T) {
	sixCleared := statuses(map[int]domain.SemesterStatus{
		1: domain.SemesterCleared, 2: domain.SemesterCleared, 3: domain.SemesterCleared,
		4: domain.SemesterCleared, 5: domain.SemesterCleared, 6: domain.SemesterCleared,
	})

	tests := []struct {
		name        string
		statuses    domain.SemesterStatuses
		maxSemester int
		want        int
	}{
		{"six cleared of eight", sixCleared, 8, 7},
		{"six cleared of six caps at max", sixCleared, 6, 6},
		{"nothing attempted", domain.NewSemesterStatuses(), 8, 1},
		{"zero value map", domain.SemesterStatuses{}, 8, 1},
		{"first pending", statuses(map[int]domain.SemesterStatus{1: domain.SemesterPending}), 8, 2},
		{"gap uses highest attempted", statuses(map[int]domain.SemesterStatus{
			1: domain.SemesterCleared, 4: domain.SemesterPending,
		}), 8, 5},
		{"attempts beyond program length ignored", statuses(map[int]domain.SemesterStatus{
			2: domain.SemesterCleared, 8: domain.SemesterCleared,
		}), 6, 3},
		{"last semester cleared", statuses(map[int]domain.SemesterStatus{8: domain.SemesterCleared}), 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentSemester(tt.statuses, tt.maxSemester))
		})
	}
}

func TestAdmissionYear(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want int
	}{
		{"20230045", 2023},
		{"230045", 2023},
		{"abc", 2026},
		{"", 2026},
		{"19990001", 2019}, // 1999 is out of range, "20"+"19" is not
		{"99", 2026},
		{"20300001", 2030},
		{"20310001", 2020},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AdmissionYearAt(tt.in, now))
		})
	}

	assert.Equal(t, time.Now().Year(), AdmissionYear("abc"))
}

func TestInstitutionalEmail(t *testing.T) {
	assert.Equal(t, "20230045@gppalanpur.in", InstitutionalEmail("20230045", "gppalanpur.in"))
	assert.Equal(t, "ab12@example.edu", InstitutionalEmail(" AB12 ", "example.edu"))
}

func TestParseFullName(t *testing.T) {
	tests := []struct {
		raw  string
		want NameParts
	}{
		{"Patel Raj Kumar", NameParts{Last: "Patel", First: "Raj", Middle: "Kumar"}},
		{"Patel Raj", NameParts{Last: "Patel", First: "Raj"}},
		{"  Patel   Raj  ", NameParts{Last: "Patel", First: "Raj"}},
		{"Raj", NameParts{First: "Raj"}},
		{"Patel Raj Kumar Bhai", NameParts{First: "Patel Raj Kumar Bhai"}},
		{"", NameParts{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFullName(tt.raw))
		})
	}
}

func TestParseBooleanFlag(t *testing.T) {
	for _, raw := range []string{"1", "true", "TRUE", " yes ", "Yes"} {
		assert.True(t, ParseBooleanFlag(raw), raw)
	}
	for _, raw := range []string{"", "0", "false", "no", "y", "2"} {
		assert.False(t, ParseBooleanFlag(raw), raw)
	}
}

func TestBatchRange(t *testing.T) {
	assert.Equal(t, "2023-2027", BatchRange(2023, 8))
	assert.Equal(t, "2023-2026", BatchRange(2023, 6))
}

func TestStudentStatus(t *testing.T) {
	assert.Equal(t, domain.StudentActive, StudentStatus(LifecycleFlags{}))
	assert.Equal(t, domain.StudentDropped, StudentStatus(LifecycleFlags{IsCancel: true, IsComplete: true, IsPassAll: true}))
	assert.Equal(t, domain.StudentGraduated, StudentStatus(LifecycleFlags{IsComplete: true, IsPassAll: true}))
	assert.Equal(t, domain.StudentActive, StudentStatus(LifecycleFlags{IsComplete: true}))
	assert.Equal(t, domain.StudentInactive, StudentStatus(LifecycleFlags{TermClose: true}))
}

func TestCellParsers(t *testing.T) {
	assert.Equal(t, "0042", CleanCell(`="0042"`))
	assert.Equal(t, "abc", CleanCell(` "abc" `))

	assert.Equal(t, "8.5", ParseDecimal("8.50").String())
	assert.Equal(t, "1234.5", ParseDecimal("1,234.5").String())
	assert.True(t, ParseDecimal("n/a").IsZero())
	assert.True(t, ParseDecimal("").IsZero())
	assert.True(t, ParseNonNegativeDecimal("-3").IsZero())

	assert.Equal(t, 3, ParseInt("3"))
	assert.Equal(t, 3, ParseInt("3.0"))
	assert.Equal(t, 0, ParseInt("x"))
}
