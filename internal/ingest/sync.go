package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/milavdabgar/gpp-ingest/internal/derive"
	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// syncCandidate is a student-role user whose department resolved.
type syncCandidate struct {
	user domain.User
	dept domain.Department
}

// SyncStudentUsers makes sure every user holding the student role has
// exactly one student record.
//
// A linked record is refreshed from the user. Otherwise the user's own
// enrollment number is used when present (linking an unclaimed record with
// that number), and a new number is allocated when it is not. Rows in the
// report are 1-based positions in the user list.
func (s *Service) SyncStudentUsers(ctx context.Context, progress ProgressFunc) (*Report, error) {
	ctx, runID, release, err := s.beginRun(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	started := time.Now()

	users, err := s.store.UsersByRole(ctx, domain.RoleStudent)
	if err != nil {
		err = &PersistenceError{Err: errors.Wrap(err, "list student users")}
		s.endRun(ctx, KindRosterSync, nil, err, started)
		return nil, err
	}

	report := newReport(runID, KindRosterSync, len(users))
	log := logging.WithFields(ctx, logrus.Fields{"kind": KindRosterSync, "users": len(users)})
	log.Info("roster sync started")

	resolver := NewDepartmentResolver(s.store)
	rows := make([]RowResult[syncCandidate], 0, len(users))
	for i, u := range users {
		n := i + 1
		code := derive.CleanCell(u.DepartmentCode)
		if code == "" {
			rows = append(rows, Fail[syncCandidate](rowWarning(n, "ROW002",
				"department not found for user %s: no department code; skipped", u.ID)))
			continue
		}
		dept, found, err := resolver.Resolve(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				err = &PersistenceError{Err: err, Report: report}
				s.endRun(ctx, KindRosterSync, report, err, started)
				return report, err
			}
			rows = append(rows, Fail[syncCandidate](rowError(n, err)))
			continue
		}
		if !found {
			rows = append(rows, Fail[syncCandidate](rowWarning(n, "ROW002",
				"department not found for code %q (user %s); skipped", code, u.ID)))
			continue
		}
		rows = append(rows, Ok(n, syncCandidate{user: u, dept: dept}))
	}

	orch := &Orchestrator[syncCandidate]{
		Kind:      KindRosterSync,
		BatchSize: s.opts.SubBatchSize,
		Progress:  progress,
		Log:       log,
	}
	err = orch.Upsert(ctx, report, rows, s.syncOne)

	s.endRun(ctx, KindRosterSync, report, err, started)
	return report, err
}

// syncOne applies one user to the store and reports whether a student was created.
func (s *Service) syncOne(ctx context.Context, c syncCandidate) (bool, error) {
	linked, err := s.store.StudentByUserID(ctx, c.user.ID)
	switch {
	case err == nil:
		s.refreshFromUser(&linked, c)
		if err := domain.ValidateStudent(&linked); err != nil {
			return false, err
		}
		_, err = s.store.UpsertStudent(ctx, &linked)
		return false, err
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	if no := derive.CleanCell(c.user.EnrollmentNo); no != "" {
		return s.linkByEnrollment(ctx, no, c)
	}

	_, err = s.allocator.CreateWithNewEnrollment(ctx, s.store, s.opts.AllocatorRetries, func(no string) (*domain.Student, error) {
		st := s.newStudent(no, c.user.FullName, c.dept, domain.NewSemesterStatuses())
		st.UserID = c.user.ID
		st.PersonalEmail = strings.ToLower(strings.TrimSpace(c.user.Email))
		return st, domain.ValidateStudent(st)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// linkByEnrollment attaches the user to the record with its own enrollment
// number, creating the record when none exists.
func (s *Service) linkByEnrollment(ctx context.Context, enrollmentNo string, c syncCandidate) (bool, error) {
	current, err := s.store.StudentByEnrollmentNo(ctx, enrollmentNo)
	switch {
	case err == nil:
		if current.UserID != "" && current.UserID != c.user.ID {
			return false, fmt.Errorf("enrollment number %s is linked to another user", enrollmentNo)
		}
		current.UserID = c.user.ID
		s.refreshFromUser(&current, c)
		if err := domain.ValidateStudent(&current); err != nil {
			return false, err
		}
		_, err = s.store.UpsertStudent(ctx, &current)
		return false, err
	case errors.Is(err, store.ErrNotFound):
		st := s.newStudent(enrollmentNo, c.user.FullName, c.dept, domain.NewSemesterStatuses())
		st.UserID = c.user.ID
		st.PersonalEmail = strings.ToLower(strings.TrimSpace(c.user.Email))
		if err := domain.ValidateStudent(st); err != nil {
			return false, err
		}
		return s.store.UpsertStudent(ctx, st)
	default:
		return false, err
	}
}

// refreshFromUser copies user-owned fields onto an existing record and
// re-derives the fields that depend on the department's program length.
// The enrollment number is never changed.
func (s *Service) refreshFromUser(st *domain.Student, c syncCandidate) {
	if name := strings.Join(strings.Fields(c.user.FullName), " "); name != "" {
		parts := derive.ParseFullName(name)
		st.FullName = name
		st.FirstName, st.MiddleName, st.LastName = parts.First, parts.Middle, parts.Last
	}
	if email := strings.ToLower(strings.TrimSpace(c.user.Email)); email != "" {
		st.PersonalEmail = email
	}
	st.DepartmentID = c.dept.ID
	st.DepartmentCode = c.dept.Code

	maxSem := c.dept.MaxSemester(s.opts.DefaultMaxSemester)
	st.CurrentSemester = derive.CurrentSemester(st.SemesterStatus, maxSem)
	st.Batch = derive.BatchRange(st.AdmissionYear, maxSem)
}
