// Package memory is an in-process implementation of store.Store.
//
// It is used by tests and by dry runs that should exercise the whole import
// pipeline without touching a database.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// Store keeps every record in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	departments map[string]domain.Department
	students    map[string]domain.Student
	results     map[domain.ResultKey]domain.ExamResult
	users       []domain.User
	counters    map[int]int

	now func() time.Time

	// FailWith, when set, is consulted before every write. A non-nil return
	// fails the write with that error.
	FailWith func(key string) error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		departments: make(map[string]domain.Department),
		students:    make(map[string]domain.Student),
		results:     make(map[domain.ResultKey]domain.ExamResult),
		counters:    make(map[int]int),
		now:         time.Now,
	}
}

// AddDepartment registers a department, assigning an ID when missing.
func (s *Store) AddDepartment(d domain.Department) domain.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.departments[d.Code] = d
	return d
}

// AddUser registers a platform account, assigning an ID when missing.
func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users = append(s.users, u)
	return u
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Students returns a snapshot of all students ordered by enrollment number.
func (s *Store) Students() []domain.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b domain.Student) int { return cmp.Compare(a.EnrollmentNo, b.EnrollmentNo) })
	return out
}

func (s *Store) fail(key string) error {
	if s.FailWith == nil {
		return nil
	}
	return s.FailWith(key)
}

func (s *Store) DepartmentByCode(_ context.Context, code string) (domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[code]
	if !ok {
		return domain.Department{}, store.ErrNotFound
	}
	return d, nil
}

func (s *Store) UpsertStudent(_ context.Context, st *domain.Student) (bool, error) {
	if err := s.fail(st.EnrollmentNo); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.students[st.EnrollmentNo]
	if ok {
		st.ID = existing.ID
		st.CreatedAt = existing.CreatedAt
		if existing.UserID != "" {
			st.UserID = existing.UserID
		}
	} else {
		if st.UserID != "" && s.userLinkedLocked(st.UserID) {
			return false, store.ErrDuplicateKey
		}
		st.ID = uuid.NewString()
		st.CreatedAt = now
	}
	st.UpdatedAt = now
	s.students[st.EnrollmentNo] = *st
	return !ok, nil
}

func (s *Store) CreateStudent(_ context.Context, st *domain.Student) error {
	if err := s.fail(st.EnrollmentNo); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[st.EnrollmentNo]; ok {
		return store.ErrDuplicateKey
	}
	if st.UserID != "" && s.userLinkedLocked(st.UserID) {
		return store.ErrDuplicateKey
	}
	now := s.now()
	st.ID = uuid.NewString()
	st.CreatedAt, st.UpdatedAt = now, now
	s.students[st.EnrollmentNo] = *st
	return nil
}

func (s *Store) userLinkedLocked(userID string) bool {
	for _, st := range s.students {
		if st.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Store) StudentByUserID(_ context.Context, userID string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.UserID == userID {
			return st, nil
		}
	}
	return domain.Student{}, store.ErrNotFound
}

func (s *Store) StudentByEnrollmentNo(_ context.Context, enrollmentNo string) (domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[enrollmentNo]
	if !ok {
		return domain.Student{}, store.ErrNotFound
	}
	return st, nil
}

// NextEnrollmentSequence returns one more than the greater of the year's
// counter and the greatest stored enrollment number for the year. Numbers
// written by roster imports therefore never collide with allocations.
func (s *Store) NextEnrollmentSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	greatest, best := "", 0
	for no := range s.students {
		if n, ok := domain.EnrollmentSequence(no, year); ok && n > best {
			greatest, best = no, n
		}
	}
	next, err := domain.NextEnrollmentNo(greatest, year)
	if err != nil {
		return 0, err
	}
	seq, _ := domain.EnrollmentSequence(next, year)
	if c := s.counters[year] + 1; c > seq {
		seq = c
	}
	s.counters[year] = seq
	return seq, nil
}

func (s *Store) UpsertResult(_ context.Context, r *domain.ExamResult) (bool, error) {
	if err := s.fail(r.EnrollmentNo + "/" + r.ExamID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.results[r.Key()]
	if ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		r.ID = uuid.NewString()
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.UploadedAt = now
	s.results[r.Key()] = cloneResult(*r)
	return !ok, nil
}

func (s *Store) InsertResults(_ context.Context, results []domain.ExamResult) []error {
	errs := make([]error, len(results))
	for i := range results {
		r := &results[i]
		if err := s.fail(r.EnrollmentNo + "/" + r.ExamID); err != nil {
			errs[i] = err
			continue
		}
		s.mu.Lock()
		if _, ok := s.results[r.Key()]; ok {
			errs[i] = store.ErrDuplicateKey
		} else {
			now := s.now()
			r.ID = uuid.NewString()
			r.CreatedAt, r.UpdatedAt, r.UploadedAt = now, now, now
			s.results[r.Key()] = cloneResult(*r)
		}
		s.mu.Unlock()
	}
	return errs
}

func (s *Store) ListResults(_ context.Context, f domain.ResultFilter) ([]domain.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ExamResult
	for _, r := range s.results {
		if f.BatchID != "" && r.UploadBatch != f.BatchID {
			continue
		}
		if f.ExamID != "" && r.ExamID != f.ExamID {
			continue
		}
		if f.EnrollmentNo != "" && r.EnrollmentNo != f.EnrollmentNo {
			continue
		}
		out = append(out, cloneResult(r))
	}
	slices.SortFunc(out, func(a, b domain.ExamResult) int {
		return cmp.Or(strings.Compare(a.EnrollmentNo, b.EnrollmentNo), strings.Compare(a.ExamID, b.ExamID))
	})
	return out, nil
}

func (s *Store) ListBatches(_ context.Context, limit int) ([]domain.BatchInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*domain.BatchInfo)
	for _, r := range s.results {
		if r.UploadBatch == "" {
			continue
		}
		b, ok := byID[r.UploadBatch]
		if !ok {
			b = &domain.BatchInfo{BatchID: r.UploadBatch}
			byID[r.UploadBatch] = b
		}
		b.Count++
		if r.UploadedAt.After(b.LatestUpload) {
			b.LatestUpload = r.UploadedAt
		}
	}

	out := make([]domain.BatchInfo, 0, len(byID))
	for _, b := range byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LatestUpload.Equal(out[j].LatestUpload) {
			return out[i].LatestUpload.After(out[j].LatestUpload)
		}
		return out[i].BatchID < out[j].BatchID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteBatch(_ context.Context, batchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, r := range s.results {
		if r.UploadBatch == batchID {
			delete(s.results, key)
			n++
		}
	}
	return n, nil
}

func (s *Store) UsersByRole(_ context.Context, role string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.User
	for _, u := range s.users {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

func cloneResult(r domain.ExamResult) domain.ExamResult {
	r.Subjects = slices.Clone(r.Subjects)
	return r
}
