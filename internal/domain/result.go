package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subject is one graded course inside an exam result. Its position in
// ExamResult.Subjects matches the slot it came from in the wide format.
type Subject struct {
	Code           string          `json:"code" validate:"required,max=40"`
	Name           string          `json:"name" validate:"required,max=200"`
	Credits        decimal.Decimal `json:"credits"`
	Grade          string          `json:"grade" validate:"max=10"`
	IsBacklog      bool            `json:"isBacklog"`
	TheoryGrade    string          `json:"theoryGrade,omitempty" validate:"max=10"`
	PracticalGrade string          `json:"practicalGrade,omitempty" validate:"max=10"`
}

// ExamResult is one student's outcome in one exam, keyed by
// (EnrollmentNo, ExamID).
type ExamResult struct {
	ID           string `json:"id"`
	EnrollmentNo string `json:"enrollmentNo" validate:"required,max=20"`
	StudentName  string `json:"studentName"`
	ExamID       string `json:"examId" validate:"required,max=40"`

	ExamType        string `json:"examType"`
	ExamName        string `json:"examName"`
	DeclarationDate string `json:"declarationDate"`
	AcademicYear    string `json:"academicYear"`
	Semester        int    `json:"semester" validate:"gte=0,lte=8"`

	InstitutionCode string `json:"institutionCode"`
	InstitutionName string `json:"institutionName"`
	CourseCode      string `json:"courseCode"`
	CourseName      string `json:"courseName"`
	BranchCode      string `json:"branchCode"`
	BranchName      string `json:"branchName"`

	Subjects []Subject `json:"subjects" validate:"max=15,dive"`

	TotalCredits  decimal.Decimal `json:"totalCredits"`
	EarnedCredits decimal.Decimal `json:"earnedCredits"`
	SPI           decimal.Decimal `json:"spi"`
	CPI           decimal.Decimal `json:"cpi"`
	CGPA          decimal.Decimal `json:"cgpa"`
	Result        string          `json:"result"`
	Trials        int             `json:"trials" validate:"gte=0"`
	Remark        string          `json:"remark"`

	UploadBatch string    `json:"uploadBatch"`
	UploadedAt  time.Time `json:"uploadedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Key returns the natural key of the result.
func (r *ExamResult) Key() ResultKey {
	return ResultKey{EnrollmentNo: r.EnrollmentNo, ExamID: r.ExamID}
}

// ResultKey is the compound natural key of an ExamResult.
type ResultKey struct {
	EnrollmentNo string
	ExamID       string
}

// BatchInfo summarizes the results written by one import run.
type BatchInfo struct {
	BatchID      string    `json:"batchId"`
	Count        int64     `json:"count"`
	LatestUpload time.Time `json:"latestUpload"`
}

// ResultFilter narrows result listings and exports. Empty fields match all.
type ResultFilter struct {
	BatchID      string
	ExamID       string
	EnrollmentNo string
}
