package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/ingest"
	"github.com/milavdabgar/gpp-ingest/internal/store"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"explicit", withCode(exitUsage, errors.New("bad flag")), exitUsage},
		{"wrapped explicit", fmt.Errorf("outer: %w", withCode(exitPartial, errors.New("rows skipped"))), exitPartial},
		{"structural", &ingest.StructuralError{Err: tabular.ErrEmpty}, exitValidation},
		{"persistence", &ingest.PersistenceError{Err: store.ErrUnavailable}, exitDB},
		{"unavailable", store.Unavailable(errors.New("dial tcp")), exitDB},
		{"cancelled", context.Canceled, exitCancelled},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), exitCancelled},
		{"batch id", ingest.ErrBatchIDRequired, exitUsage},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestWithCode_Nil(t *testing.T) {
	assert.NoError(t, withCode(exitDB, nil))
}

func TestDescribeError(t *testing.T) {
	err := &ingest.StructuralError{Err: tabular.ErrEmpty}
	got := describeError(err)
	assert.Contains(t, got, "FILE005")
	assert.Contains(t, got, err.Error())

	assert.Equal(t, "boom", describeError(errors.New("boom")))
}

func TestExportFormat(t *testing.T) {
	assert.Equal(t, tabular.FormatXLSX, exportFormat("xlsx", ""))
	assert.Equal(t, tabular.FormatCSV, exportFormat("csv", "out.xlsx"))
	assert.Equal(t, tabular.FormatXLSX, exportFormat("", "Results.XLSX"))
	assert.Equal(t, tabular.FormatCSV, exportFormat("", "results.csv"))
	assert.Equal(t, tabular.FormatCSV, exportFormat("", ""))
}

func TestPrintReport(t *testing.T) {
	report := &ingest.Report{
		RunID:          "run-1",
		Kind:           "results",
		BatchID:        "batch-1",
		TotalRows:      4,
		ProcessedCount: 2,
		Created:        1,
		Updated:        1,
		Errors:         []ingest.Issue{{Row: 3, Code: "ROW001", Message: "required field map_number is empty"}},
		Warnings:       []ingest.Issue{{Row: 4, Code: "ROW004", Message: "repeated key"}},
		Duration:       1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "=== results import ===")
	assert.Contains(t, out, "batch-1")
	assert.Contains(t, out, "Errors (1)")
	assert.Contains(t, out, "ROW001")
	assert.Contains(t, out, "Warnings (1)")
	assert.NotContains(t, out, "All rows imported.")
}

func TestPrintReport_Clean(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &ingest.Report{Kind: "students", TotalRows: 2, ProcessedCount: 2, Created: 2})
	assert.Contains(t, buf.String(), "All rows imported.")
	assert.NotContains(t, buf.String(), "Batch")
}

func TestPrintIssues_Truncates(t *testing.T) {
	issues := make([]ingest.Issue, maxIssueRows+7)
	for i := range issues {
		issues[i] = ingest.Issue{Row: i + 1, Code: "ROW001", Message: "required field"}
	}
	var buf bytes.Buffer
	printIssues(&buf, color.New(color.FgRed), "Errors", issues)
	assert.Contains(t, buf.String(), "7 more")
}

func TestPrintBatches(t *testing.T) {
	var buf bytes.Buffer
	printBatches(&buf, nil)
	assert.Contains(t, buf.String(), "No batches found.")

	buf.Reset()
	printBatches(&buf, []domain.BatchInfo{{BatchID: "b-1", Count: 12, LatestUpload: time.Now()}})
	assert.Contains(t, buf.String(), "b-1")
	assert.Contains(t, buf.String(), "12")
}

func TestPrintDeleteResult(t *testing.T) {
	var buf bytes.Buffer
	printDeleteResult(&buf, &ingest.DeleteBatchResult{BatchID: "b-1", NotFound: true})
	assert.Contains(t, buf.String(), "matched no results")

	buf.Reset()
	printDeleteResult(&buf, &ingest.DeleteBatchResult{BatchID: "b-1", DeletedCount: 3})
	assert.Contains(t, buf.String(), "Deleted 3 results")
}

func TestTemplateCmd_CSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, run(context.Background(), []string{"template", "results", "--out", out}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	require.NoError(t, err)
	assert.Equal(t, widerow.Header(), header)
}

func TestTemplateCmd_XLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "roster.xlsx")

	require.NoError(t, run(context.Background(), []string{"template", "students", "--out", out}))

	wb, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ingest.RosterColumns(), rows[0])
}

func TestTemplateCmd_UnknownKind(t *testing.T) {
	err := run(context.Background(), []string{"template", "grades"})
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestImportCmd_BadMode(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost:1/none")

	err := run(context.Background(), []string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "results", "import", "x.csv", "--mode", "merge"})
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestSetup_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")

	err := run(context.Background(), []string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "batches", "list"})
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestPrintPreview(t *testing.T) {
	p := &ingest.Preview{
		Summary:     ingest.PreviewSummary{TotalRows: 3, NewRows: 1, UpdateRows: 1, ErrorRows: 1},
		Errors:      []ingest.Issue{{Row: 2, Code: "ROW001", Message: "required field map_number is empty"}},
		UpdateDiffs: []ingest.UpdateDiff{{Row: 3, EnrollmentNo: "20230001", ExamID: "EX-W24", Changed: []string{"spi", "cpi"}}},
	}
	var buf bytes.Buffer
	printPreview(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "nothing written")
	assert.Contains(t, out, "ROW001")
	assert.Contains(t, out, "spi, cpi")
}

// offlineEnv points the CLI at the memory backend with no dotenv file.
func offlineEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "none.env")
}

func TestRun_WritesMetricsAfterRejectedImport(t *testing.T) {
	envFile := offlineEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(input, nil, 0o600))
	metrics := filepath.Join(dir, "ingest.prom")

	err := run(context.Background(), []string{
		"--env-file", envFile, "--metrics-file", metrics,
		"results", "import", input, "--quiet",
	})
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))

	body, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ingest_runs_total{kind="results",status="structural"}`)
}

func TestRun_WritesMetricsAfterStrictPartialImport(t *testing.T) {
	envFile := offlineEnv(t)
	dir := t.TempDir()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := widerow.Header()
	require.NoError(t, w.Write(header))
	row := make([]string, len(header))
	for i, col := range header {
		switch col {
		case widerow.ColEnrollmentNo:
			row[i] = "20230001"
		case widerow.ColExamID:
			row[i] = "EX-W24"
		}
	}
	require.NoError(t, w.Write(row))
	// second row has no enrollment number
	missing := make([]string, len(header))
	for i, col := range header {
		if col == widerow.ColExamID {
			missing[i] = "EX-W24"
		}
	}
	require.NoError(t, w.Write(missing))
	w.Flush()

	input := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(input, buf.Bytes(), 0o600))
	metrics := filepath.Join(dir, "ingest.prom")

	err := run(context.Background(), []string{
		"--env-file", envFile, "--metrics-file", metrics, "--json",
		"results", "import", input, "--strict", "--quiet",
	})
	require.Error(t, err)
	assert.Equal(t, exitPartial, exitCode(err))

	body, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ingest_runs_total{kind="results",status="partial"}`)
}

type failingClose struct {
	bytes.Buffer
}

func (f *failingClose) Close() error { return errors.New("disk full") }

func TestWriteOutput_ReportsCloseError(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })

	var file *failingClose
	createFile = func(string) (io.WriteCloser, error) {
		file = &failingClose{}
		return file, nil
	}

	err := writeOutput("results.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "map_number\n")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Equal(t, "map_number\n", file.String())
}

func TestWriteOutput_WriteErrorWins(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })
	createFile = func(string) (io.WriteCloser, error) { return &failingClose{}, nil }

	err := writeOutput("results.csv", func(io.Writer) error { return errors.New("list results: boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
