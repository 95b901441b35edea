package widerow

import (
	"fmt"
	"strconv"

	"github.com/milavdabgar/gpp-ingest/internal/derive"
	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

// Source yields raw cell values by column name. tabular.Row satisfies it.
type Source interface {
	Get(column string) string
}

// MissingFieldError reports a blank mandatory column.
type MissingFieldError struct {
	Column string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s is empty", e.Column)
}

// Normalize converts one wide row into an exam result. Only a blank
// enrollment number or exam id rejects the row; malformed numeric cells
// become zero.
func Normalize(src Source) (domain.ExamResult, error) {
	get := func(col string) string { return derive.CleanCell(src.Get(col)) }

	r := domain.ExamResult{
		EnrollmentNo: get(ColEnrollmentNo),
		ExamID:       get(ColExamID),
	}
	if r.EnrollmentNo == "" {
		return r, &MissingFieldError{Column: ColEnrollmentNo}
	}
	if r.ExamID == "" {
		return r, &MissingFieldError{Column: ColExamID}
	}

	r.StudentName = get(ColStudentName)
	r.ExamType = get(ColExamType)
	r.ExamName = get(ColExamName)
	r.DeclarationDate = get(ColDeclarationDate)
	r.AcademicYear = get(ColAcademicYear)
	r.Semester = derive.ParseInt(get(ColSemester))
	r.InstitutionCode = get(ColInstCode)
	r.InstitutionName = get(ColInstName)
	r.CourseCode = get(ColCourseCode)
	r.CourseName = get(ColCourseName)
	r.BranchCode = get(ColBranchCode)
	r.BranchName = get(ColBranchName)

	r.Subjects = Subjects(src)

	r.TotalCredits = derive.ParseNonNegativeDecimal(get(ColTotalCredits))
	r.EarnedCredits = derive.ParseNonNegativeDecimal(get(ColEarnedCredits))
	r.SPI = derive.ParseDecimal(get(ColSPI))
	r.CPI = derive.ParseDecimal(get(ColCPI))
	r.CGPA = derive.ParseDecimal(get(ColCGPA))
	r.Result = get(ColResult)
	r.Trials = max(derive.ParseInt(get(ColTrial)), 0)
	r.Remark = get(ColRemark)

	return r, nil
}

// Subjects reads the populated subject slots of a wide row in slot order.
func Subjects(src Source) []domain.Subject {
	var subjects []domain.Subject
	for n := 1; n <= SubjectSlots; n++ {
		cols := Slot(n)
		code := derive.CleanCell(src.Get(cols.Code))
		name := derive.CleanCell(src.Get(cols.Name))
		if code == "" || name == "" {
			continue
		}
		subjects = append(subjects, domain.Subject{
			Code:           code,
			Name:           name,
			Credits:        derive.ParseNonNegativeDecimal(src.Get(cols.Credits)),
			Grade:          derive.CleanCell(src.Get(cols.Grade)),
			IsBacklog:      derive.CleanCell(src.Get(cols.Backlog)) == BacklogTrue,
			TheoryGrade:    derive.CleanCell(src.Get(cols.TheoryGrade)),
			PracticalGrade: derive.CleanCell(src.Get(cols.PracticalGrade)),
		})
	}
	return subjects
}

// Denormalize is the inverse of Normalize: it returns the wide row for r,
// aligned with Header. Subject n is written to slot n; unused slots are blank.
func Denormalize(r *domain.ExamResult) ([]string, error) {
	if len(r.Subjects) > SubjectSlots {
		return nil, fmt.Errorf("result %s/%s has %d subjects, the wide format holds %d",
			r.EnrollmentNo, r.ExamID, len(r.Subjects), SubjectSlots)
	}

	row := make([]string, 0, len(Header()))
	row = append(row,
		r.EnrollmentNo, r.StudentName, r.ExamID, r.ExamType, r.ExamName,
		r.DeclarationDate, r.AcademicYear, strconv.Itoa(r.Semester),
		r.InstitutionCode, r.InstitutionName, r.CourseCode, r.CourseName, r.BranchCode, r.BranchName,
	)

	for n := 1; n <= SubjectSlots; n++ {
		if n > len(r.Subjects) {
			row = append(row, make([]string, len(Slot(n).Names()))...)
			continue
		}
		sub := r.Subjects[n-1]
		backlog := BacklogFalse
		if sub.IsBacklog {
			backlog = BacklogTrue
		}
		row = append(row, sub.Code, sub.Name, sub.Credits.String(), sub.Grade, backlog, sub.TheoryGrade, sub.PracticalGrade)
	}

	row = append(row,
		r.TotalCredits.String(), r.EarnedCredits.String(),
		r.SPI.String(), r.CPI.String(), r.CGPA.String(),
		r.Result, strconv.Itoa(r.Trials), r.Remark,
	)
	return row, nil
}
