package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/milavdabgar/gpp-ingest/internal/ingest"
)

func newStudentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Import student rosters and link platform users",
	}
	cmd.AddCommand(newStudentsImportCmd(a))
	cmd.AddCommand(newStudentsSyncCmd(a))
	return cmd
}

func newStudentsImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a student roster extract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), a, args[0], opts, ingest.ImportRequest{},
				func(ctx context.Context, svc *ingest.Service, req ingest.ImportRequest) (*ingest.Report, error) {
					return svc.ImportStudents(ctx, req)
				})
		},
	}

	addImportFlags(&opts, cmd.Flags())
	return cmd
}

func newStudentsSyncCmd(a *app) *cobra.Command {
	var strict, quiet bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create or link student records for every user with the student role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			var progress ingest.ProgressFunc
			if !quiet && !a.jsonOut {
				progress = progressPrinter(os.Stderr)
			}
			report, err := svc.SyncStudentUsers(ctx, progress)
			return finishRun(a, report, err, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 5 when any user was skipped")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print progress")
	return cmd
}
