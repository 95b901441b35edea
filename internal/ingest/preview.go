package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

// PreviewSummary holds the counts of a dry run.
type PreviewSummary struct {
	TotalRows      int `json:"totalRows"`
	NewRows        int `json:"newRows"`
	UpdateRows     int `json:"updateRows"`
	ErrorRows      int `json:"errorRows"`
	RepeatedInFile int `json:"repeatedInFile"`
}

// UpdateDiff lists the fields an import would change on an existing result.
type UpdateDiff struct {
	Row          int      `json:"row"`
	EnrollmentNo string   `json:"enrollmentNo"`
	ExamID       string   `json:"examId"`
	Changed      []string `json:"changed"`
}

// Preview is the read-only analysis of a result extract.
type Preview struct {
	Summary          PreviewSummary `json:"summary"`
	Errors           []Issue        `json:"errors"`
	Warnings         []Issue        `json:"warnings"`
	UpdateDiffs      []UpdateDiff   `json:"updateDiffs"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Sample limits
const (
	maxPreviewIssues = 50
	maxUpdateDiffs   = 10
)

// PreviewResults analyzes a result extract without writing anything. Rows
// are normalized exactly as ImportResults would, then classified as new or
// update against the results stored for each exam in the file.
func (s *Service) PreviewResults(ctx context.Context, req ImportRequest) (*Preview, error) {
	started := time.Now()

	table, err := s.decode(req, widerow.RequiredColumns)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Summary:     PreviewSummary{TotalRows: len(table.Rows)},
		Errors:      []Issue{},
		Warnings:    []Issue{},
		UpdateDiffs: []UpdateDiff{},
	}

	rows := normalizeResults(table.Rows, "")
	byExam := make(map[string][]RowResult[*domain.ExamResult])
	for _, rr := range rows {
		if f := rr.Failure; f != nil {
			issue := Issue{Row: f.Row, Message: f.Message, Code: f.Code}
			if f.Severity == SeverityWarning {
				p.Summary.RepeatedInFile++
				if len(p.Warnings) < maxPreviewIssues {
					p.Warnings = append(p.Warnings, issue)
				}
			} else {
				p.Summary.ErrorRows++
				if len(p.Errors) < maxPreviewIssues {
					p.Errors = append(p.Errors, issue)
				}
			}
			continue
		}
		byExam[rr.Value.ExamID] = append(byExam[rr.Value.ExamID], rr)
	}

	exams := make([]string, 0, len(byExam))
	for exam := range byExam {
		exams = append(exams, exam)
	}
	sort.Strings(exams)

	var diffs []UpdateDiff
	for _, exam := range exams {
		existing, err := s.store.ListResults(ctx, domain.ResultFilter{ExamID: exam})
		if err != nil {
			return nil, errors.Wrapf(err, "list results for exam %s", exam)
		}
		current := make(map[string]*domain.ExamResult, len(existing))
		for i := range existing {
			current[existing[i].EnrollmentNo] = &existing[i]
		}

		for _, rr := range byExam[exam] {
			cur, ok := current[rr.Value.EnrollmentNo]
			if !ok {
				p.Summary.NewRows++
				continue
			}
			p.Summary.UpdateRows++
			if changed := changedResultFields(cur, rr.Value); len(changed) > 0 {
				diffs = append(diffs, UpdateDiff{
					Row:          rr.Row,
					EnrollmentNo: rr.Value.EnrollmentNo,
					ExamID:       exam,
					Changed:      changed,
				})
			}
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Row < diffs[j].Row })
	if len(diffs) > maxUpdateDiffs {
		diffs = diffs[:maxUpdateDiffs]
	}
	p.UpdateDiffs = append(p.UpdateDiffs, diffs...)

	p.ProcessingTimeMs = time.Since(started).Milliseconds()
	return p, nil
}

// changedResultFields names the fields that differ between the stored and
// incoming result, covering every field an upsert overwrites. Bookkeeping
// fields (ids, batch, timestamps) are ignored.
func changedResultFields(cur, in *domain.ExamResult) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	add("studentName", cur.StudentName != in.StudentName)
	add("examType", cur.ExamType != in.ExamType)
	add("examName", cur.ExamName != in.ExamName)
	add("declarationDate", cur.DeclarationDate != in.DeclarationDate)
	add("academicYear", cur.AcademicYear != in.AcademicYear)
	add("semester", cur.Semester != in.Semester)
	add("institutionCode", cur.InstitutionCode != in.InstitutionCode)
	add("institutionName", cur.InstitutionName != in.InstitutionName)
	add("courseCode", cur.CourseCode != in.CourseCode)
	add("courseName", cur.CourseName != in.CourseName)
	add("branchCode", cur.BranchCode != in.BranchCode)
	add("branchName", cur.BranchName != in.BranchName)
	add("totalCredits", !cur.TotalCredits.Equal(in.TotalCredits))
	add("earnedCredits", !cur.EarnedCredits.Equal(in.EarnedCredits))
	add("spi", !cur.SPI.Equal(in.SPI))
	add("cpi", !cur.CPI.Equal(in.CPI))
	add("cgpa", !cur.CGPA.Equal(in.CGPA))
	add("result", cur.Result != in.Result)
	add("trials", cur.Trials != in.Trials)
	add("remark", cur.Remark != in.Remark)
	add("subjects", !sameSubjects(cur.Subjects, in.Subjects))
	return changed
}

func sameSubjects(a, b []domain.Subject) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Code != y.Code || x.Name != y.Name || x.Grade != y.Grade ||
			x.IsBacklog != y.IsBacklog || x.TheoryGrade != y.TheoryGrade ||
			x.PracticalGrade != y.PracticalGrade || !x.Credits.Equal(y.Credits) {
			return false
		}
	}
	return true
}
