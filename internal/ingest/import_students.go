package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/milavdabgar/gpp-ingest/internal/derive"
	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/store"
	"github.com/milavdabgar/gpp-ingest/internal/tabular"
)

// ImportStudents imports a student roster extract, upserting by enrollment
// number. Rows whose branch code matches no department are skipped with a
// warning.
func (s *Service) ImportStudents(ctx context.Context, req ImportRequest) (*Report, error) {
	ctx, runID, release, err := s.beginRun(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	started := time.Now()

	table, err := s.decode(req, rosterRequired)
	if err != nil {
		s.endRun(ctx, KindStudents, nil, err, started)
		return nil, err
	}

	report := newReport(runID, KindStudents, len(table.Rows))
	log := logging.WithFields(ctx, logrus.Fields{
		"kind": KindStudents,
		"file": req.FileName,
		"rows": len(table.Rows),
	})
	log.Info("roster import started")

	resolver := NewDepartmentResolver(s.store)
	rows, err := s.normalizeStudents(ctx, table.Rows, resolver)
	if err != nil {
		err = &PersistenceError{Err: err, Report: report}
		s.endRun(ctx, KindStudents, report, err, started)
		return report, err
	}
	log.WithField("department_lookups", resolver.Lookups()).Debug("roster normalized")

	orch := &Orchestrator[*domain.Student]{
		Kind:      KindStudents,
		BatchSize: s.opts.SubBatchSize,
		Progress:  req.Progress,
		Log:       log,
	}
	err = orch.Upsert(ctx, report, rows, s.store.UpsertStudent)

	s.endRun(ctx, KindStudents, report, err, started)
	return report, err
}

// normalizeStudents converts roster rows into candidate students. It fails
// only when the department lookup cannot reach the store.
func (s *Service) normalizeStudents(ctx context.Context, rows []tabular.Row, resolver *DepartmentResolver) ([]RowResult[*domain.Student], error) {
	out := make([]RowResult[*domain.Student], 0, len(rows))
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		get := func(col string) string { return derive.CleanCell(row.Get(col)) }

		enrollmentNo := get(ColMapNumber)
		name := get(ColName)
		code := get(ColBranchCode)
		switch {
		case enrollmentNo == "":
			out = append(out, Fail[*domain.Student](rowError(row.Number, errMissing(ColMapNumber))))
			continue
		case name == "":
			out = append(out, Fail[*domain.Student](rowError(row.Number, errMissing(ColName))))
			continue
		case code == "":
			out = append(out, Fail[*domain.Student](rowError(row.Number, errMissing(ColBranchCode))))
			continue
		}

		if first, dup := seen[enrollmentNo]; dup {
			out = append(out, Fail[*domain.Student](rowWarning(row.Number, "ROW004",
				"repeated key %s already imported from row %d; row skipped", enrollmentNo, first)))
			continue
		}

		dept, found, err := resolver.Resolve(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				return nil, err
			}
			out = append(out, Fail[*domain.Student](rowError(row.Number, err)))
			continue
		}
		if !found {
			out = append(out, Fail[*domain.Student](rowWarning(row.Number, "ROW002",
				"department not found for code %q; row skipped", code)))
			continue
		}

		maxSem := dept.MaxSemester(s.opts.DefaultMaxSemester)
		statuses := domain.NewSemesterStatuses()
		for n := 1; n <= maxSem; n++ {
			statuses.Set(n, derive.SemesterStatus(row.Get(semesterColumn(n))))
		}

		st := s.newStudent(enrollmentNo, name, dept, statuses)
		st.PersonalEmail = strings.ToLower(get(ColEmail))
		st.Gender = get(ColGender)
		st.Category = get(ColCategory)
		st.Mobile = get(ColMobile)
		st.DateOfBirth = get(ColDOB)
		st.IsComplete = derive.ParseBooleanFlag(row.Get(ColIsComplete))
		st.TermClose = derive.ParseBooleanFlag(row.Get(ColTermClose))
		st.IsCancel = derive.ParseBooleanFlag(row.Get(ColIsCancel))
		st.IsPassAll = derive.ParseBooleanFlag(row.Get(ColIsPassAll))
		st.Status = derive.StudentStatus(derive.LifecycleFlags{
			IsComplete: st.IsComplete,
			TermClose:  st.TermClose,
			IsCancel:   st.IsCancel,
			IsPassAll:  st.IsPassAll,
		})

		if err := domain.ValidateStudent(st); err != nil {
			out = append(out, Fail[*domain.Student](rowError(row.Number, err)))
			continue
		}
		seen[enrollmentNo] = row.Number
		out = append(out, Ok(row.Number, st))
	}
	return out, nil
}
