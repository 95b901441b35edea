package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milavdabgar/gpp-ingest/internal/ingest"
)

func newTemplateCmd(a *app) *cobra.Command {
	var out, format string

	kinds := make([]string, 0)
	for _, info := range ingest.Kinds() {
		kinds = append(kinds, string(info.Kind))
	}

	cmd := &cobra.Command{
		Use:       "template <kind>",
		Short:     "Write an empty import file with the expected header",
		Long:      "Write an empty import file with the expected header.\n\nKinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		Annotations: map[string]string{
			annotationOffline: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ingest.Kind(args[0])
			if _, ok := ingest.LookupKind(kind); !ok {
				return withCode(exitUsage, fmt.Errorf("unknown kind %q (want one of: %s)", args[0], strings.Join(kinds, ", ")))
			}
			f := exportFormat(format, out)
			return writeOutput(out, func(w io.Writer) error {
				return ingest.WriteTemplate(w, kind, f)
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: csv or xlsx (default: from --out extension, else csv)")
	return cmd
}
