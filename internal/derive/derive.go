// Package derive computes the derived fields of academic records from raw
// extract values.
//
// Every function here is pure and deterministic, apart from the wall clock
// read by AdmissionYear; use AdmissionYearAt to pin it.
package derive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

// Admission years outside this range are treated as unparseable.
const (
	MinAdmissionYear = 2000
	MaxAdmissionYear = 2030
)

// SemesterStatus maps a raw semester code to a status.
// 2 is CLEARED, 1 is PENDING; anything else, including blanks, is NOT_ATTEMPTED.
func SemesterStatus(raw string) domain.SemesterStatus {
	n, err := strconv.Atoi(CleanCell(raw))
	if err != nil {
		return domain.SemesterNotAttempted
	}
	switch n {
	case 2:
		return domain.SemesterCleared
	case 1:
		return domain.SemesterPending
	default:
		return domain.SemesterNotAttempted
	}
}

// CurrentSemester returns the semester a student is in.
//
// Semesters are scanned from maxSemester down to 1. The first CLEARED or
// PENDING semester s yields min(s+1, maxSemester); a student with no
// attempted semester is in semester 1.
func CurrentSemester(statuses domain.SemesterStatuses, maxSemester int) int {
	if maxSemester > domain.MaxSemesterSlots {
		maxSemester = domain.MaxSemesterSlots
	}
	for sem := maxSemester; sem >= 1; sem-- {
		switch statuses.Get(sem) {
		case domain.SemesterCleared, domain.SemesterPending:
			return min(sem+1, maxSemester)
		}
	}
	return 1
}

// AdmissionYear derives the admission year from an enrollment number.
func AdmissionYear(enrollmentNo string) int {
	return AdmissionYearAt(enrollmentNo, time.Now())
}

// AdmissionYearAt derives the admission year from an enrollment number.
//
// Two numbering eras exist: "20230045" carries a four digit year and
// "230045" a two digit one. When neither parses into the accepted range
// the year of now is used.
func AdmissionYearAt(enrollmentNo string, now time.Time) int {
	s := strings.TrimSpace(enrollmentNo)
	if len(s) >= 4 {
		if y, ok := yearInRange(s[:4]); ok {
			return y
		}
	}
	if len(s) >= 2 {
		if y, ok := yearInRange("20" + s[:2]); ok {
			return y
		}
	}
	return now.Year()
}

func yearInRange(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	if err != nil || y < MinAdmissionYear || y > MaxAdmissionYear {
		return 0, false
	}
	return y, true
}

// InstitutionalEmail returns the mailbox assigned to an enrollment number.
func InstitutionalEmail(enrollmentNo, domainName string) string {
	return strings.ToLower(strings.TrimSpace(enrollmentNo)) + "@" + domainName
}

// NameParts is a full name split into its components.
type NameParts struct {
	First  string
	Middle string
	Last   string
}

// ParseFullName splits a name written family-name first.
//
//	"Raj"             -> first=Raj
//	"Patel Raj"       -> last=Patel first=Raj
//	"Patel Raj Kumar" -> last=Patel first=Raj middle=Kumar
//
// Any other token count keeps the whole trimmed string as the first name.
func ParseFullName(raw string) NameParts {
	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 1:
		return NameParts{First: tokens[0]}
	case 2:
		return NameParts{Last: tokens[0], First: tokens[1]}
	case 3:
		return NameParts{Last: tokens[0], First: tokens[1], Middle: tokens[2]}
	default:
		return NameParts{First: strings.TrimSpace(raw)}
	}
}

// ParseBooleanFlag reports whether raw is one of "1", "true" or "yes",
// ignoring case and surrounding whitespace.
func ParseBooleanFlag(raw string) bool {
	switch strings.ToLower(CleanCell(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// BatchRange formats the expected span of a cohort, e.g. "2023-2027" for an
// eight semester program.
func BatchRange(admissionYear, maxSemester int) string {
	return fmt.Sprintf("%d-%d", admissionYear, admissionYear+(maxSemester+1)/2)
}

// LifecycleFlags are the roster flags that decide a student's status.
type LifecycleFlags struct {
	IsComplete bool
	TermClose  bool
	IsCancel   bool
	IsPassAll  bool
}

// StudentStatus maps roster lifecycle flags to a status. Cancellation wins,
// then completion with every subject passed, then a closed term.
func StudentStatus(f LifecycleFlags) domain.StudentStatus {
	switch {
	case f.IsCancel:
		return domain.StudentDropped
	case f.IsComplete && f.IsPassAll:
		return domain.StudentGraduated
	case f.TermClose:
		return domain.StudentInactive
	default:
		return domain.StudentActive
	}
}
