package ingest

import (
	"context"
	"io"

	"github.com/go-faster/errors"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

// ExportRequest selects the results to export and the output format.
type ExportRequest struct {
	Writer io.Writer
	Format tabular.Format
	Filter domain.ResultFilter
}

// ExportResults writes matching results in the wide format, ordered by
// enrollment number then exam id, and returns how many were written. The
// output re-imports to the same results.
func (s *Service) ExportResults(ctx context.Context, req ExportRequest) (int, error) {
	results, err := s.store.ListResults(ctx, req.Filter)
	if err != nil {
		return 0, errors.Wrap(err, "list results")
	}

	w, err := widerow.NewWriter(req.Writer, req.Format)
	if err != nil {
		return 0, err
	}
	for i := range results {
		if err := w.Write(&results[i]); err != nil {
			return i, errors.Wrapf(err, "export %s/%s", results[i].EnrollmentNo, results[i].ExamID)
		}
	}
	if err := w.Close(); err != nil {
		return len(results), err
	}

	logging.FromContext(ctx).WithField("results", len(results)).Info("results exported")
	return len(results), nil
}
