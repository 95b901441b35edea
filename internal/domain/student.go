package domain

import (
	"slices"
	"time"
)

// StudentStatus is the lifecycle state of a student.
type StudentStatus string

const (
	StudentActive      StudentStatus = "active"
	StudentInactive    StudentStatus = "inactive"
	StudentGraduated   StudentStatus = "graduated"
	StudentTransferred StudentStatus = "transferred"
	StudentDropped     StudentStatus = "dropped"
)

// Student is the normalized student record. EnrollmentNo is the natural key
// and never changes once assigned.
type Student struct {
	ID           string `json:"id"`
	EnrollmentNo string `json:"enrollmentNo" validate:"required,alphanum,max=20"`

	FirstName  string `json:"firstName" validate:"max=100"`
	MiddleName string `json:"middleName" validate:"max=100"`
	LastName   string `json:"lastName" validate:"max=100"`
	FullName   string `json:"fullName" validate:"required,max=300"`

	InstitutionalEmail string `json:"institutionalEmail" validate:"required,email"`
	PersonalEmail      string `json:"personalEmail,omitempty" validate:"omitempty,email"`

	DepartmentID   string `json:"departmentId" validate:"required"`
	DepartmentCode string `json:"departmentCode,omitempty"`

	AdmissionYear   int              `json:"admissionYear" validate:"gte=2000,lte=2100"`
	Batch           string           `json:"batch"`
	SemesterStatus  SemesterStatuses `json:"semesterStatus"`
	CurrentSemester int              `json:"currentSemester" validate:"min=1,max=8"`

	Gender      string `json:"gender,omitempty" validate:"max=20"`
	Category    string `json:"category,omitempty" validate:"max=40"`
	Mobile      string `json:"mobile,omitempty" validate:"max=20"`
	DateOfBirth string `json:"dateOfBirth,omitempty" validate:"max=20"`

	IsComplete bool `json:"isComplete"`
	TermClose  bool `json:"termClose"`
	IsCancel   bool `json:"isCancel"`
	IsPassAll  bool `json:"isPassAll"`

	Status StudentStatus `json:"status" validate:"required,oneof=active inactive graduated transferred dropped"`
	UserID string        `json:"userId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Department is an externally managed academic department.
//
// ProgramSemesters is the explicit program length (6 or 8) when the
// department declares one; zero means the caller's default applies.
type Department struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	ProgramSemesters int    `json:"programSemesters,omitempty"`
}

// MaxSemester returns the program length for the department, or fallback
// when the department does not declare one.
func (d Department) MaxSemester(fallback int) int {
	if d.ProgramSemesters > 0 && d.ProgramSemesters <= MaxSemesterSlots {
		return d.ProgramSemesters
	}
	return fallback
}

// RoleStudent is the role that makes a user eligible for roster sync.
const RoleStudent = "student"

// User is a platform account. Only the fields roster sync reads are modeled.
type User struct {
	ID             string   `json:"id"`
	FullName       string   `json:"fullName"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles"`
	DepartmentCode string   `json:"departmentCode,omitempty"`
	EnrollmentNo   string   `json:"enrollmentNo,omitempty"`
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
