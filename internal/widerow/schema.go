// Package widerow converts between the university's wide result extract and
// normalized exam results.
//
// The extract flattens up to SubjectSlots subjects into numbered columns:
//
//	SUB{i}    subject code
//	SUB{i}NA  subject name
//	SUB{i}CR  credits
//	SUB{i}GR  grade
//	BCK{i}    backlog flag ("1" when the subject is a backlog)
//	SUB{i}GRT theory grade (optional)
//	SUB{i}GRP practical grade (optional)
//
// Slots are sparse: a slot with a blank code or name is skipped, and the
// remaining subjects keep their file order. Export writes subject n of a
// record to slot n, so exporting and re-importing a record reproduces it.
package widerow

import "fmt"

// SubjectSlots is the number of subject slots in the wide format.
const SubjectSlots = 15

// Backlog flag encodings.
const (
	BacklogTrue  = "1"
	BacklogFalse = "0"
)

// Identity and metadata columns of the result extract.
const (
	ColEnrollmentNo    = "map_number"
	ColStudentName     = "name"
	ColExamID          = "examid"
	ColExamType        = "extype"
	ColExamName        = "exam"
	ColDeclarationDate = "DECLARATIONDATE"
	ColAcademicYear    = "AcademicYear"
	ColSemester        = "sem"
	ColInstCode        = "instcode"
	ColInstName        = "instName"
	ColCourseCode      = "CourseCode"
	ColCourseName      = "CourseName"
	ColBranchCode      = "BR_CODE"
	ColBranchName      = "BR_NAME"
)

// Aggregate columns of the result extract.
const (
	ColTotalCredits  = "TOTAL_CREDITS"
	ColEarnedCredits = "EARNED_CREDITS"
	ColSPI           = "SPI"
	ColCPI           = "CPI"
	ColCGPA          = "CGPA"
	ColResult        = "RESULT"
	ColTrial         = "TRIAL"
	ColRemark        = "REMARK"
)

var leadingColumns = []string{
	ColEnrollmentNo, ColStudentName, ColExamID, ColExamType, ColExamName,
	ColDeclarationDate, ColAcademicYear, ColSemester,
	ColInstCode, ColInstName, ColCourseCode, ColCourseName, ColBranchCode, ColBranchName,
}

var trailingColumns = []string{
	ColTotalCredits, ColEarnedCredits, ColSPI, ColCPI, ColCGPA, ColResult, ColTrial, ColRemark,
}

// RequiredColumns must be present in the header of a result extract.
var RequiredColumns = []string{ColEnrollmentNo, ColExamID}

// SlotColumns names the columns of one subject slot.
type SlotColumns struct {
	Code           string
	Name           string
	Credits        string
	Grade          string
	Backlog        string
	TheoryGrade    string
	PracticalGrade string
}

// Names returns the slot's columns in export order.
func (s SlotColumns) Names() []string {
	return []string{s.Code, s.Name, s.Credits, s.Grade, s.Backlog, s.TheoryGrade, s.PracticalGrade}
}

var slots = func() [SubjectSlots]SlotColumns {
	var out [SubjectSlots]SlotColumns
	for i := range out {
		n := i + 1
		out[i] = SlotColumns{
			Code:           fmt.Sprintf("SUB%d", n),
			Name:           fmt.Sprintf("SUB%dNA", n),
			Credits:        fmt.Sprintf("SUB%dCR", n),
			Grade:          fmt.Sprintf("SUB%dGR", n),
			Backlog:        fmt.Sprintf("BCK%d", n),
			TheoryGrade:    fmt.Sprintf("SUB%dGRT", n),
			PracticalGrade: fmt.Sprintf("SUB%dGRP", n),
		}
	}
	return out
}()

// Slot returns the column names of 1-based slot n. It panics when n is
// outside 1..SubjectSlots.
func Slot(n int) SlotColumns {
	if n < 1 || n > SubjectSlots {
		panic(fmt.Sprintf("widerow: slot %d out of range", n))
	}
	return slots[n-1]
}

// Header returns every column of the wide format in export order.
func Header() []string {
	h := make([]string, 0, len(leadingColumns)+SubjectSlots*7+len(trailingColumns))
	h = append(h, leadingColumns...)
	for n := 1; n <= SubjectSlots; n++ {
		h = append(h, Slot(n).Names()...)
	}
	return append(h, trailingColumns...)
}
