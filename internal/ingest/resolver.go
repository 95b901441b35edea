package ingest

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/milavdabgar/gpp-ingest/internal/derive"
	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// DepartmentResolver resolves department codes for a single run.
//
// Hits and misses are both cached, so a roster with thousands of rows for a
// handful of branches costs one lookup per distinct code. Create a new
// resolver for every run; department data may change between runs.
type DepartmentResolver struct {
	src store.Departments

	mu      sync.Mutex
	cache   map[string]*domain.Department // nil value: known miss
	lookups int
}

// NewDepartmentResolver returns an empty resolver backed by src.
func NewDepartmentResolver(src store.Departments) *DepartmentResolver {
	return &DepartmentResolver{
		src:   src,
		cache: make(map[string]*domain.Department),
	}
}

// Resolve returns the department for code. found is false when no
// department has that code; err is set only when the lookup itself failed.
func (r *DepartmentResolver) Resolve(ctx context.Context, code string) (dept domain.Department, found bool, err error) {
	code = derive.CleanCell(code)
	if code == "" {
		return domain.Department{}, false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.cache[code]; ok {
		if d == nil {
			return domain.Department{}, false, nil
		}
		return *d, true, nil
	}

	r.lookups++
	d, err := r.src.DepartmentByCode(ctx, code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.cache[code] = nil
		return domain.Department{}, false, nil
	case err != nil:
		return domain.Department{}, false, errors.Wrapf(err, "resolve department %q", code)
	}
	r.cache[code] = &d
	return d, true, nil
}

// Lookups returns how many times the backing store was queried.
func (r *DepartmentResolver) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}
