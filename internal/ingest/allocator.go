package ingest

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// DefaultAllocatorRetries bounds how often a collided allocation is retried.
const DefaultAllocatorRetries = 5

// Allocator issues new enrollment numbers for the current calendar year.
//
// Sequence numbers come from the store's per-year counter, which is
// incremented atomically, so concurrent allocations never share a number.
// The counter starts above the greatest number already stored for the year.
type Allocator struct {
	counter store.EnrollmentCounter
	now     func() time.Time
}

// NewAllocator returns an allocator using the store's counter and now as clock.
func NewAllocator(counter store.EnrollmentCounter, now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{counter: counter, now: now}
}

// Next returns a fresh enrollment number "<YYYY><NNNN>".
func (a *Allocator) Next(ctx context.Context) (string, error) {
	year := a.now().Year()
	seq, err := a.counter.NextEnrollmentSequence(ctx, year)
	if err != nil {
		return "", errors.Wrapf(err, "allocate enrollment number for %d", year)
	}
	return domain.FormatEnrollmentNo(year, seq)
}

// CreateWithNewEnrollment allocates an enrollment number, lets build fill in
// the fields that depend on it, and inserts the student. When the insert hits
// a unique key (a number taken outside the counter), a new number is
// allocated, up to retries attempts.
func (a *Allocator) CreateWithNewEnrollment(
	ctx context.Context,
	students store.Students,
	retries int,
	build func(enrollmentNo string) (*domain.Student, error),
) (*domain.Student, error) {
	if retries <= 0 {
		retries = DefaultAllocatorRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		no, err := a.Next(ctx)
		if err != nil {
			return nil, err
		}
		st, err := build(no)
		if err != nil {
			return nil, err
		}
		err = students.CreateStudent(ctx, st)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "allocate enrollment number: %d attempts collided", retries)
}
