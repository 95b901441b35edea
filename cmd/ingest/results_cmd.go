package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/ingest"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
)

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Import and export exam results",
	}
	cmd.AddCommand(newResultsImportCmd(a))
	cmd.AddCommand(newResultsExportCmd(a))
	return cmd
}

func newResultsImportCmd(a *app) *cobra.Command {
	var opts importOptions
	var mode string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a wide-format results extract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := ingest.ParseWriteMode(mode)
			if err != nil {
				return withCode(exitUsage, err)
			}
			req := ingest.ImportRequest{Mode: wm}
			if dryRun {
				return runPreview(cmd.Context(), a, args[0], opts, req)
			}
			return runImport(cmd.Context(), a, args[0], opts, req,
				func(ctx context.Context, svc *ingest.Service, req ingest.ImportRequest) (*ingest.Report, error) {
					return svc.ImportResults(ctx, req)
				})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "upsert", "Write mode: upsert updates existing results, insert counts them as duplicates")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file and show what would change without writing")
	addImportFlags(&opts, cmd.Flags())
	return cmd
}

func newResultsExportCmd(a *app) *cobra.Command {
	var filter domain.ResultFilter
	var out, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export results in the wide format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := exportFormat(format, out)
			if f == tabular.FormatXLSX && out == "" {
				return withCode(exitUsage, fmt.Errorf("--out is required for xlsx export"))
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			var n int
			err = writeOutput(out, func(w io.Writer) error {
				var err error
				n, err = svc.ExportResults(ctx, ingest.ExportRequest{Writer: w, Format: f, Filter: filter})
				return err
			})
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "exported %d results to %s\n", n, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.BatchID, "batch", "", "Only results from this batch")
	cmd.Flags().StringVar(&filter.ExamID, "exam", "", "Only results of this exam")
	cmd.Flags().StringVar(&filter.EnrollmentNo, "enrollment", "", "Only results of this enrollment number")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: csv or xlsx (default: from --out extension, else csv)")
	return cmd
}

// exportFormat resolves the explicit format or falls back to the file extension.
func exportFormat(format, out string) tabular.Format {
	if f := tabular.ParseFormat(format); f != tabular.FormatAuto {
		return f
	}
	if strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return tabular.FormatXLSX
	}
	return tabular.FormatCSV
}
