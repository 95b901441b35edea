package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
	"github.com/milavdabgar/gpp-ingest/internal/widerow"
)

// ImportResults imports a wide-format result extract.
//
// Every written result is stamped with a new batch ID, returned in the
// report. The returned error is a StructuralError (nothing written, nil
// report), a PersistenceError (partial report), the context error after
// cancellation (partial report) or ErrTooManyRuns.
func (s *Service) ImportResults(ctx context.Context, req ImportRequest) (*Report, error) {
	ctx, runID, release, err := s.beginRun(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	started := time.Now()

	table, err := s.decode(req, widerow.RequiredColumns)
	if err != nil {
		s.endRun(ctx, KindResults, nil, err, started)
		return nil, err
	}

	batchID := NewBatchID()
	report := newReport(runID, KindResults, len(table.Rows))
	report.BatchID = batchID

	log := logging.WithFields(ctx, logrus.Fields{
		"kind":  KindResults,
		"batch": batchID,
		"file":  req.FileName,
		"rows":  len(table.Rows),
		"mode":  req.Mode.String(),
	})
	log.Info("result import started")

	rows := normalizeResults(table.Rows, batchID)
	orch := &Orchestrator[*domain.ExamResult]{
		Kind:      KindResults,
		BatchSize: s.opts.SubBatchSize,
		Progress:  req.Progress,
		Log:       log,
	}

	if req.Mode == ModeInsert {
		err = orch.Insert(ctx, report, rows, func(ctx context.Context, vs []*domain.ExamResult) []error {
			results := make([]domain.ExamResult, len(vs))
			for i, v := range vs {
				results[i] = *v
			}
			return s.store.InsertResults(ctx, results)
		})
	} else {
		err = orch.Upsert(ctx, report, rows, s.store.UpsertResult)
	}

	s.endRun(ctx, KindResults, report, err, started)
	return report, err
}

// normalizeResults converts decoded rows into candidate results. A key that
// repeats within the file keeps its first occurrence; later ones are warned
// about and skipped.
func normalizeResults(rows []tabular.Row, batchID string) []RowResult[*domain.ExamResult] {
	out := make([]RowResult[*domain.ExamResult], 0, len(rows))
	seen := make(map[domain.ResultKey]int, len(rows))

	for _, row := range rows {
		r, err := widerow.Normalize(row)
		if err != nil {
			out = append(out, Fail[*domain.ExamResult](rowError(row.Number, err)))
			continue
		}
		if first, dup := seen[r.Key()]; dup {
			out = append(out, Fail[*domain.ExamResult](rowWarning(row.Number, "ROW004",
				"repeated key %s/%s already imported from row %d; row skipped", r.EnrollmentNo, r.ExamID, first)))
			continue
		}
		if err := domain.ValidateResult(&r); err != nil {
			out = append(out, Fail[*domain.ExamResult](rowError(row.Number, err)))
			continue
		}
		seen[r.Key()] = row.Number
		r.UploadBatch = batchID
		out = append(out, Ok(row.Number, &r))
	}
	return out
}
