package hierarchy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrTablesNotBuilt = errors.New("probability tables have not been built")

// BuildFunc produces a Hierarchy from the current inputs.
type BuildFunc func(ctx context.Context) (*Hierarchy, error)

// Tables holds the process-wide Hierarchy behind a build-once guard.
type Tables struct {
	current atomic.Pointer[Hierarchy]
	mu      sync.Mutex
	build   BuildFunc
}

// NewTables returns an unbuilt guard around build.
func NewTables(build BuildFunc) *Tables {
	return &Tables{build: build}
}

// Build runs the build function once. Later calls return the existing
// Hierarchy. A failed build leaves the guard unbuilt.
func (t *Tables) Build(ctx context.Context) (*Hierarchy, error) {
	if h := t.current.Load(); h != nil {
		return h, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if h := t.current.Load(); h != nil {
		return h, nil
	}

	h, err := t.build(ctx)
	if err != nil {
		return nil, err
	}
	t.current.Store(h)
	return h, nil
}

// Get returns the built Hierarchy or ErrTablesNotBuilt.
func (t *Tables) Get() (*Hierarchy, error) {
	h := t.current.Load()
	if h == nil {
		return nil, ErrTablesNotBuilt
	}
	return h, nil
}
