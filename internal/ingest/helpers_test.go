package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store/memory"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

// newTestService returns a service over a memory store holding a six
// semester department "06" and an eight semester department "16".
func newTestService(t *testing.T, opts Options) (*Service, *memory.Store) {
	t.Helper()

	st := memory.New()
	var tick atomic.Int64
	st.SetClock(func() time.Time {
		return testNow.Add(time.Duration(tick.Add(1)) * time.Millisecond)
	})
	st.AddDepartment(domain.Department{ID: "dept-ce", Code: "06", Name: "Computer Engineering", ProgramSemesters: 6})
	st.AddDepartment(domain.Department{ID: "dept-it", Code: "16", Name: "Information Technology", ProgramSemesters: 8})

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.InstitutionDomain == "" {
		opts.InstitutionDomain = "gppalanpur.in"
	}
	return NewService(st, opts), st
}

// resultRow returns a valid wide row for student i in exam examID.
func resultRow(i int, examID string) map[string]string {
	return map[string]string{
		widerow.ColEnrollmentNo: fmt.Sprintf("2023%04d", i),
		widerow.ColStudentName:  "Patel Raj Kumar",
		widerow.ColExamID:       examID,
		widerow.ColExamType:     "REGULAR",
		widerow.ColSemester:     "3",
		widerow.ColBranchCode:   "06",
		"SUB1":                  "4330701",
		"SUB1NA":                "Data Structures",
		"SUB1CR":                "4",
		"SUB1GR":                "AA",
		"BCK1":                  "0",
		"SUB3":                  "4330703",
		"SUB3NA":                "Networks",
		"SUB3CR":                "3",
		"SUB3GR":                "FF",
		"BCK3":                  "1",
		widerow.ColSPI:          "7.85",
		widerow.ColCPI:          "7.9",
		widerow.ColCGPA:         "7.9",
		widerow.ColResult:       "PASS",
		widerow.ColTrial:        "1",
	}
}

// wideCSV renders rows with the full wide header.
func wideCSV(t *testing.T, rows []map[string]string) []byte {
	t.Helper()
	return renderCSV(t, widerow.Header(), rows)
}

func renderCSV(t *testing.T, header []string, rows []map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(header))
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return buf.Bytes()
}

// resultView strips bookkeeping fields so results from different runs compare equal.
func resultView(t *testing.T, results []domain.ExamResult) string {
	t.Helper()

	type view struct {
		EnrollmentNo string
		ExamID       string
		Semester     int
		Subjects     []domain.Subject
		SPI, CPI     string
		Result       string
		Trials       int
	}
	out := make([]view, len(results))
	for i, r := range results {
		out[i] = view{r.EnrollmentNo, r.ExamID, r.Semester, r.Subjects, r.SPI.String(), r.CPI.String(), r.Result, r.Trials}
	}
	b, err := json.Marshal(out)
	require.NoError(t, err)
	return string(b)
}
