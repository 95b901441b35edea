package ingest

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// DefaultSubBatchSize is the number of writes issued concurrently.
const DefaultSubBatchSize = 50

// Progress is reported after every sub-batch.
type Progress struct {
	Kind    Kind
	Written int // candidates handled so far
	Total   int // candidates to write
}

// ProgressFunc receives progress updates. It is called from the run's goroutine.
type ProgressFunc func(Progress)

// UpsertFunc writes one record by natural key and reports whether it was created.
type UpsertFunc[T any] func(ctx context.Context, v T) (created bool, err error)

// InsertFunc inserts records in bulk and returns one error slot per record.
type InsertFunc[T any] func(ctx context.Context, vs []T) []error

// Orchestrator applies normalized rows to a store in sub-batches.
type Orchestrator[T any] struct {
	Kind      Kind
	BatchSize int
	Progress  ProgressFunc
	Log       *logrus.Entry
}

type writeOutcome struct {
	created bool
	err     error
}

// Upsert writes every successful row with write. Failed rows are copied into
// report unchanged. All writes of a sub-batch run concurrently; a failing
// write does not cancel the others.
func (o *Orchestrator[T]) Upsert(ctx context.Context, report *Report, rows []RowResult[T], write UpsertFunc[T]) error {
	return o.run(ctx, report, rows, false, func(ctx context.Context, chunk []RowResult[T]) []writeOutcome {
		out := make([]writeOutcome, len(chunk))
		var g errgroup.Group
		for i := range chunk {
			g.Go(func() error {
				created, err := write(ctx, chunk[i].Value)
				out[i] = writeOutcome{created: created, err: err}
				return nil
			})
		}
		_ = g.Wait()
		return out
	})
}

// Insert writes every successful row with a bulk insert per sub-batch.
// Duplicate keys are counted in report.Duplicates instead of being listed
// as row errors.
func (o *Orchestrator[T]) Insert(ctx context.Context, report *Report, rows []RowResult[T], insert InsertFunc[T]) error {
	return o.run(ctx, report, rows, true, func(ctx context.Context, chunk []RowResult[T]) []writeOutcome {
		values := make([]T, len(chunk))
		for i, r := range chunk {
			values[i] = r.Value
		}
		errs := insert(ctx, values)
		out := make([]writeOutcome, len(chunk))
		for i := range out {
			if i < len(errs) {
				out[i] = writeOutcome{created: errs[i] == nil, err: errs[i]}
			} else {
				out[i] = writeOutcome{err: errors.New("bulk insert returned no result for row")}
			}
		}
		return out
	})
}

func (o *Orchestrator[T]) run(
	ctx context.Context,
	report *Report,
	rows []RowResult[T],
	bulk bool,
	apply func(context.Context, []RowResult[T]) []writeOutcome,
) error {
	m := getMetrics()
	kind := string(o.Kind)
	log := o.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	size := o.BatchSize
	if size <= 0 {
		size = DefaultSubBatchSize
	}

	pending := make([]RowResult[T], 0, len(rows))
	for _, r := range rows {
		if r.Failure != nil {
			report.add(r.Failure)
			outcome := outcomeError
			if r.Failure.Severity == SeverityWarning {
				outcome = outcomeWarning
			}
			m.rowsTotal.WithLabelValues(kind, outcome).Inc()
			log.WithFields(logrus.Fields{"row": r.Row, "code": r.Failure.Code}).Debug(r.Failure.Message)
			continue
		}
		pending = append(pending, r)
	}

	// Writes already issued must finish even if the caller goes away.
	writeCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(pending); start += size {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			log.WithFields(logrus.Fields{
				"written":   start,
				"remaining": len(pending) - start,
			}).Warn("run cancelled, no further sub-batches started")
			return err
		}

		chunk := pending[start:min(start+size, len(pending))]
		began := time.Now()
		outcomes := apply(writeCtx, chunk)
		m.subBatchDuration.WithLabelValues(kind).Observe(time.Since(began).Seconds())

		var unavailable error
		for i, out := range outcomes {
			row := chunk[i].Row
			switch {
			case out.err == nil:
				report.ProcessedCount++
				if out.created {
					report.Created++
					m.rowsTotal.WithLabelValues(kind, outcomeCreated).Inc()
				} else {
					report.Updated++
					m.rowsTotal.WithLabelValues(kind, outcomeUpdated).Inc()
				}
			case errors.Is(out.err, store.ErrUnavailable):
				unavailable = out.err
				report.add(rowError(row, out.err))
				m.rowsTotal.WithLabelValues(kind, outcomeError).Inc()
			case bulk && errors.Is(out.err, store.ErrDuplicateKey):
				report.Duplicates++
				m.rowsTotal.WithLabelValues(kind, outcomeDuplicate).Inc()
			default:
				f := rowError(row, out.err)
				report.add(f)
				m.rowsTotal.WithLabelValues(kind, outcomeError).Inc()
				log.WithFields(logrus.Fields{"row": row, "code": f.Code}).WithError(out.err).Debug("row write failed")
			}
		}

		if o.Progress != nil {
			o.Progress(Progress{Kind: o.Kind, Written: start + len(chunk), Total: len(pending)})
		}

		if unavailable != nil {
			log.WithError(unavailable).Error("store unavailable, stopping run")
			return &PersistenceError{Err: unavailable, Report: report}
		}
	}
	return nil
}
