package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/ingest"
)

// maxIssueRows caps the issue tables; --json prints everything.
const maxIssueRows = 50

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return withCode(exitFailure, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

// createFile opens output files; tests replace it.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeOutput runs write against stdout, or against the file at path when
// one is given. A failed close is reported like a failed write.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := createFile(path)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return withCode(exitFailure, fmt.Errorf("close %s: %w", path, err))
	}
	return nil
}

// describeError prefixes known failures with their support code.
func describeError(err error) string {
	if ingest.IsUserFacing(err) {
		return ingest.FormatUserError(err) + "\n  " + err.Error()
	}
	return err.Error()
}

func printReport(w io.Writer, r *ingest.Report) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(w, "\n=== %s import ===\n", r.Kind)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Run", r.RunID})
	if r.BatchID != "" {
		table.Append([]string{"Batch", r.BatchID})
	}
	table.Append([]string{"Rows", strconv.Itoa(r.TotalRows)})
	table.Append([]string{"Processed", strconv.Itoa(r.ProcessedCount)})
	table.Append([]string{"Created", strconv.Itoa(r.Created)})
	table.Append([]string{"Updated", strconv.Itoa(r.Updated)})
	if r.Duplicates > 0 {
		table.Append([]string{"Duplicates", strconv.Itoa(r.Duplicates)})
	}
	table.Append([]string{"Errors", strconv.Itoa(len(r.Errors))})
	table.Append([]string{"Warnings", strconv.Itoa(len(r.Warnings))})
	table.Append([]string{"Duration", r.Duration.String()})
	table.Render()

	printIssues(w, color.New(color.FgRed), "Errors", r.Errors)
	printIssues(w, color.New(color.FgYellow), "Warnings", r.Warnings)

	switch {
	case r.Cancelled:
		color.New(color.FgYellow).Fprintln(w, "Run cancelled before all rows were written.")
	case !r.HasIssues():
		color.New(color.FgGreen).Fprintln(w, "All rows imported.")
	}
}

func printIssues(w io.Writer, heading *color.Color, label string, issues []ingest.Issue) {
	if len(issues) == 0 {
		return
	}
	heading.Fprintf(w, "\n%s (%d)\n", label, len(issues))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Code", "Message"})
	table.SetAutoWrapText(false)
	for i, issue := range issues {
		if i == maxIssueRows {
			table.Append([]string{"...", "", fmt.Sprintf("%d more", len(issues)-maxIssueRows)})
			break
		}
		table.Append([]string{strconv.Itoa(issue.Row), issue.Code, issue.Message})
	}
	table.Render()
}

func printPreview(w io.Writer, p *ingest.Preview) {
	color.New(color.FgCyan, color.Bold).Fprintln(w, "\n=== results preview (nothing written) ===")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rows", "New", "Update", "Errors", "Repeated"})
	table.Append([]string{
		strconv.Itoa(p.Summary.TotalRows),
		strconv.Itoa(p.Summary.NewRows),
		strconv.Itoa(p.Summary.UpdateRows),
		strconv.Itoa(p.Summary.ErrorRows),
		strconv.Itoa(p.Summary.RepeatedInFile),
	})
	table.Render()

	printIssues(w, color.New(color.FgRed), "Errors", p.Errors)
	printIssues(w, color.New(color.FgYellow), "Warnings", p.Warnings)

	if len(p.UpdateDiffs) == 0 {
		return
	}
	color.New(color.FgBlue).Fprintf(w, "\nChanged results (first %d)\n", len(p.UpdateDiffs))
	diffs := tablewriter.NewWriter(w)
	diffs.SetHeader([]string{"Row", "Enrollment", "Exam", "Changed"})
	for _, d := range p.UpdateDiffs {
		diffs.Append([]string{strconv.Itoa(d.Row), d.EnrollmentNo, d.ExamID, strings.Join(d.Changed, ", ")})
	}
	diffs.Render()
}

func printBatches(w io.Writer, batches []domain.BatchInfo) {
	if len(batches) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No batches found.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Batch", "Results", "Latest Upload"})
	for _, b := range batches {
		table.Append([]string{
			b.BatchID,
			strconv.FormatInt(b.Count, 10),
			b.LatestUpload.Local().Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func printDeleteResult(w io.Writer, res *ingest.DeleteBatchResult) {
	if res.NotFound {
		color.New(color.FgYellow).Fprintf(w, "Batch %s matched no results.\n", res.BatchID)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Deleted %d results from batch %s.\n", res.DeletedCount, res.BatchID)
}

// progressPrinter reports sub-batch progress on w.
func progressPrinter(w io.Writer) ingest.ProgressFunc {
	c := color.New(color.Faint)
	return func(p ingest.Progress) {
		c.Fprintf(w, "%s: %d/%d written\n", p.Kind, p.Written, p.Total)
	}
}
