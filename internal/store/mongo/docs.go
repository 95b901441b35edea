package mongo

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
)

type departmentDoc struct {
	ID               string `bson:"_id"`
	Code             string `bson:"code"`
	Name             string `bson:"name"`
	ProgramSemesters int    `bson:"programSemesters,omitempty"`
}

type userDoc struct {
	ID             string   `bson:"_id"`
	FullName       string   `bson:"fullName"`
	Email          string   `bson:"email"`
	Roles          []string `bson:"roles"`
	DepartmentCode string   `bson:"departmentCode,omitempty"`
	EnrollmentNo   string   `bson:"enrollmentNo,omitempty"`
}

type studentDoc struct {
	ID                 string            `bson:"_id"`
	EnrollmentNo       string            `bson:"enrollmentNo"`
	FirstName          string            `bson:"firstName"`
	MiddleName         string            `bson:"middleName"`
	LastName           string            `bson:"lastName"`
	FullName           string            `bson:"fullName"`
	InstitutionalEmail string            `bson:"institutionalEmail"`
	PersonalEmail      string            `bson:"personalEmail"`
	DepartmentID       string            `bson:"departmentId"`
	DepartmentCode     string            `bson:"departmentCode"`
	AdmissionYear      int               `bson:"admissionYear"`
	Batch              string            `bson:"batch"`
	SemesterStatus     map[string]string `bson:"semesterStatus"`
	CurrentSemester    int               `bson:"currentSemester"`
	Gender             string            `bson:"gender"`
	Category           string            `bson:"category"`
	Mobile             string            `bson:"mobile"`
	DateOfBirth        string            `bson:"dateOfBirth"`
	IsComplete         bool              `bson:"isComplete"`
	TermClose          bool              `bson:"termClose"`
	IsCancel           bool              `bson:"isCancel"`
	IsPassAll          bool              `bson:"isPassAll"`
	Status             string            `bson:"status"`
	UserID             string            `bson:"userId,omitempty"`
	CreatedAt          time.Time         `bson:"createdAt"`
	UpdatedAt          time.Time         `bson:"updatedAt"`
}

type subjectDoc struct {
	Code           string               `bson:"code"`
	Name           string               `bson:"name"`
	Credits        primitive.Decimal128 `bson:"credits"`
	Grade          string               `bson:"grade"`
	IsBacklog      bool                 `bson:"isBacklog"`
	TheoryGrade    string               `bson:"theoryGrade,omitempty"`
	PracticalGrade string               `bson:"practicalGrade,omitempty"`
}

type resultDoc struct {
	ID              string               `bson:"_id"`
	EnrollmentNo    string               `bson:"enrollmentNo"`
	StudentName     string               `bson:"studentName"`
	ExamID          string               `bson:"examId"`
	ExamType        string               `bson:"examType"`
	ExamName        string               `bson:"examName"`
	DeclarationDate string               `bson:"declarationDate"`
	AcademicYear    string               `bson:"academicYear"`
	Semester        int                  `bson:"semester"`
	InstitutionCode string               `bson:"institutionCode"`
	InstitutionName string               `bson:"institutionName"`
	CourseCode      string               `bson:"courseCode"`
	CourseName      string               `bson:"courseName"`
	BranchCode      string               `bson:"branchCode"`
	BranchName      string               `bson:"branchName"`
	Subjects        []subjectDoc         `bson:"subjects"`
	TotalCredits    primitive.Decimal128 `bson:"totalCredits"`
	EarnedCredits   primitive.Decimal128 `bson:"earnedCredits"`
	SPI             primitive.Decimal128 `bson:"spi"`
	CPI             primitive.Decimal128 `bson:"cpi"`
	CGPA            primitive.Decimal128 `bson:"cgpa"`
	Result          string               `bson:"result"`
	Trials          int                  `bson:"trials"`
	Remark          string               `bson:"remark"`
	UploadBatch     string               `bson:"uploadBatch"`
	UploadedAt      time.Time            `bson:"uploadedAt"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func semesterMap(s domain.SemesterStatuses) map[string]string {
	m := make(map[string]string, domain.MaxSemesterSlots)
	for i := 1; i <= domain.MaxSemesterSlots; i++ {
		m[semesterKey(i)] = string(s.Get(i))
	}
	return m
}

func semesterKey(n int) string {
	return "sem" + strconv.Itoa(n)
}

func semesterStatuses(m map[string]string) domain.SemesterStatuses {
	s := domain.NewSemesterStatuses()
	for i := 1; i <= domain.MaxSemesterSlots; i++ {
		if v, ok := m[semesterKey(i)]; ok && v != "" {
			s.Set(i, domain.SemesterStatus(v))
		}
	}
	return s
}

func newStudentDoc(st *domain.Student) studentDoc {
	return studentDoc{
		ID:                 st.ID,
		EnrollmentNo:       st.EnrollmentNo,
		FirstName:          st.FirstName,
		MiddleName:         st.MiddleName,
		LastName:           st.LastName,
		FullName:           st.FullName,
		InstitutionalEmail: st.InstitutionalEmail,
		PersonalEmail:      st.PersonalEmail,
		DepartmentID:       st.DepartmentID,
		DepartmentCode:     st.DepartmentCode,
		AdmissionYear:      st.AdmissionYear,
		Batch:              st.Batch,
		SemesterStatus:     semesterMap(st.SemesterStatus),
		CurrentSemester:    st.CurrentSemester,
		Gender:             st.Gender,
		Category:           st.Category,
		Mobile:             st.Mobile,
		DateOfBirth:        st.DateOfBirth,
		IsComplete:         st.IsComplete,
		TermClose:          st.TermClose,
		IsCancel:           st.IsCancel,
		IsPassAll:          st.IsPassAll,
		Status:             string(st.Status),
		UserID:             st.UserID,
		CreatedAt:          st.CreatedAt,
		UpdatedAt:          st.UpdatedAt,
	}
}

func (d studentDoc) student() domain.Student {
	return domain.Student{
		ID:                 d.ID,
		EnrollmentNo:       d.EnrollmentNo,
		FirstName:          d.FirstName,
		MiddleName:         d.MiddleName,
		LastName:           d.LastName,
		FullName:           d.FullName,
		InstitutionalEmail: d.InstitutionalEmail,
		PersonalEmail:      d.PersonalEmail,
		DepartmentID:       d.DepartmentID,
		DepartmentCode:     d.DepartmentCode,
		AdmissionYear:      d.AdmissionYear,
		Batch:              d.Batch,
		SemesterStatus:     semesterStatuses(d.SemesterStatus),
		CurrentSemester:    d.CurrentSemester,
		Gender:             d.Gender,
		Category:           d.Category,
		Mobile:             d.Mobile,
		DateOfBirth:        d.DateOfBirth,
		IsComplete:         d.IsComplete,
		TermClose:          d.TermClose,
		IsCancel:           d.IsCancel,
		IsPassAll:          d.IsPassAll,
		Status:             domain.StudentStatus(d.Status),
		UserID:             d.UserID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func newResultDoc(r *domain.ExamResult) resultDoc {
	subjects := make([]subjectDoc, len(r.Subjects))
	for i, s := range r.Subjects {
		subjects[i] = subjectDoc{
			Code:           s.Code,
			Name:           s.Name,
			Credits:        toDecimal128(s.Credits),
			Grade:          s.Grade,
			IsBacklog:      s.IsBacklog,
			TheoryGrade:    s.TheoryGrade,
			PracticalGrade: s.PracticalGrade,
		}
	}
	return resultDoc{
		ID:              r.ID,
		EnrollmentNo:    r.EnrollmentNo,
		StudentName:     r.StudentName,
		ExamID:          r.ExamID,
		ExamType:        r.ExamType,
		ExamName:        r.ExamName,
		DeclarationDate: r.DeclarationDate,
		AcademicYear:    r.AcademicYear,
		Semester:        r.Semester,
		InstitutionCode: r.InstitutionCode,
		InstitutionName: r.InstitutionName,
		CourseCode:      r.CourseCode,
		CourseName:      r.CourseName,
		BranchCode:      r.BranchCode,
		BranchName:      r.BranchName,
		Subjects:        subjects,
		TotalCredits:    toDecimal128(r.TotalCredits),
		EarnedCredits:   toDecimal128(r.EarnedCredits),
		SPI:             toDecimal128(r.SPI),
		CPI:             toDecimal128(r.CPI),
		CGPA:            toDecimal128(r.CGPA),
		Result:          r.Result,
		Trials:          r.Trials,
		Remark:          r.Remark,
		UploadBatch:     r.UploadBatch,
		UploadedAt:      r.UploadedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d resultDoc) result() domain.ExamResult {
	subjects := make([]domain.Subject, len(d.Subjects))
	for i, s := range d.Subjects {
		subjects[i] = domain.Subject{
			Code:           s.Code,
			Name:           s.Name,
			Credits:        fromDecimal128(s.Credits),
			Grade:          s.Grade,
			IsBacklog:      s.IsBacklog,
			TheoryGrade:    s.TheoryGrade,
			PracticalGrade: s.PracticalGrade,
		}
	}
	return domain.ExamResult{
		ID:              d.ID,
		EnrollmentNo:    d.EnrollmentNo,
		StudentName:     d.StudentName,
		ExamID:          d.ExamID,
		ExamType:        d.ExamType,
		ExamName:        d.ExamName,
		DeclarationDate: d.DeclarationDate,
		AcademicYear:    d.AcademicYear,
		Semester:        d.Semester,
		InstitutionCode: d.InstitutionCode,
		InstitutionName: d.InstitutionName,
		CourseCode:      d.CourseCode,
		CourseName:      d.CourseName,
		BranchCode:      d.BranchCode,
		BranchName:      d.BranchName,
		Subjects:        subjects,
		TotalCredits:    fromDecimal128(d.TotalCredits),
		EarnedCredits:   fromDecimal128(d.EarnedCredits),
		SPI:             fromDecimal128(d.SPI),
		CPI:             fromDecimal128(d.CPI),
		CGPA:            fromDecimal128(d.CGPA),
		Result:          d.Result,
		Trials:          d.Trials,
		Remark:          d.Remark,
		UploadBatch:     d.UploadBatch,
		UploadedAt:      d.UploadedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
