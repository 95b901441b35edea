package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/milavdabgar/gpp-ingest/internal/ingest"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
)

type importOptions struct {
	format string
	strict bool
	quiet  bool
}

type importFunc func(ctx context.Context, svc *ingest.Service, req ingest.ImportRequest) (*ingest.Report, error)

// runImport opens path, runs fn and prints the report. A run that finished
// with row issues exits with exitPartial under --strict.
func runImport(ctx context.Context, a *app, path string, opts importOptions, req ingest.ImportRequest, fn importFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer func() { _ = f.Close() }()

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	req.Reader = f
	req.FileName = filepath.Base(path)
	req.Format = tabular.ParseFormat(opts.format)
	if !opts.quiet && !a.jsonOut {
		req.Progress = progressPrinter(os.Stderr)
	}

	ctx, cancel := a.runContext(ctx)
	defer cancel()

	report, err := fn(ctx, svc, req)
	return finishRun(a, report, err, opts.strict)
}

// runPreview analyzes path without writing and prints the outcome.
func runPreview(ctx context.Context, a *app, path string, opts importOptions, req ingest.ImportRequest) error {
	f, err := os.Open(path)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer func() { _ = f.Close() }()

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	req.Reader = f
	req.FileName = filepath.Base(path)
	req.Format = tabular.ParseFormat(opts.format)

	p, err := svc.PreviewResults(ctx, req)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return writeJSON(os.Stdout, p)
	}
	printPreview(os.Stdout, p)
	if opts.strict && (p.Summary.ErrorRows > 0 || p.Summary.RepeatedInFile > 0) {
		return withCode(exitPartial, fmt.Errorf("%d rows would be skipped", p.Summary.ErrorRows+p.Summary.RepeatedInFile))
	}
	return nil
}

// finishRun prints whatever report a run produced and converts its outcome
// to an exit status.
func finishRun(a *app, report *ingest.Report, err error, strict bool) error {
	var pe *ingest.PersistenceError
	if report == nil && errors.As(err, &pe) {
		report = pe.Report
	}
	if report != nil {
		if a.jsonOut {
			if jerr := writeJSON(os.Stdout, report); jerr != nil {
				return jerr
			}
		} else {
			printReport(os.Stdout, report)
		}
	}
	if err != nil {
		return err
	}
	if strict && report != nil && report.HasIssues() {
		return withCode(exitPartial, fmt.Errorf("%d errors, %d warnings, %d duplicates",
			len(report.Errors), len(report.Warnings), report.Duplicates))
	}
	return nil
}

func addImportFlags(opts *importOptions, flags interface {
	StringVar(p *string, name, value, usage string)
	BoolVar(p *bool, name string, value bool, usage string)
}) {
	flags.StringVar(&opts.format, "format", "auto", "Input format: auto, csv or xlsx")
	flags.BoolVar(&opts.strict, "strict", false, "Exit with status 5 when any row was skipped")
	flags.BoolVar(&opts.quiet, "quiet", false, "Do not print progress")
}
