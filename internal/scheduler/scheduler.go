// Package scheduler runs independent entities over index ranges, either
// sequentially or in parallel. Ranges carry no data dependencies, so any
// partition of [0, n) produces the same per-entity results.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// Policy selects how ranges are split.
type Policy string

const (
	// PolicyDivide splits ranges at the midpoint while they exceed the
	// threshold and a worker slot is free.
	PolicyDivide Policy = "divide"
	// PolicyStatic splits once into min(n, workers) contiguous chunks.
	PolicyStatic Policy = "static"
)

// Defaults
const (
	DefaultThreshold     = 1000
	DefaultProgressEvery = 1000
)

var ErrLeafPanic = errors.New("panic while processing range")

// Options configure a Scheduler.
type Options struct {
	Name          string
	Concurrent    bool
	Parallelism   int
	Threshold     int
	Policy        Policy
	ProgressEvery int64
}

// LeafFunc processes every index in [start, end).
type LeafFunc func(ctx context.Context, start, end int) error

// Scheduler is single-use per batch; Processed counts across runs.
type Scheduler struct {
	opts      Options
	processed atomic.Int64
	leaves    atomic.Int64
}

// New fills unset options with defaults.
func New(opts Options) *Scheduler {
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Policy == "" {
		opts.Policy = PolicyDivide
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Name == "" {
		opts.Name = "batch"
	}
	return &Scheduler{opts: opts}
}

// ParsePolicy validates a configured policy. Empty means PolicyDivide.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDivide:
		return PolicyDivide, nil
	case PolicyStatic:
		return PolicyStatic, nil
	}
	return "", fmt.Errorf("unknown scheduling policy %q", s)
}

// Processed returns the number of entities completed by ForEach.
func (s *Scheduler) Processed() int64 { return s.processed.Load() }

// Leaves returns the number of leaf ranges executed.
func (s *Scheduler) Leaves() int64 { return s.leaves.Load() }

// Run covers [0, n) with leaf calls. Every index is passed to exactly one
// leaf. The first leaf error (or panic) cancels the context seen by the
// other leaves and is returned once all of them have finished.
func (s *Scheduler) Run(ctx context.Context, n int, leaf LeafFunc) error {
	if n <= 0 {
		return nil
	}
	if !s.opts.Concurrent || s.opts.Parallelism == 1 {
		return s.runLeaf(ctx, 0, n, leaf)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)

	switch s.opts.Policy {
	case PolicyStatic:
		chunks := min(n, s.opts.Parallelism)
		for c := 0; c < chunks; c++ {
			start, end := c*n/chunks, (c+1)*n/chunks
			g.Go(func() error { return s.runLeaf(gctx, start, end, leaf) })
		}
	default:
		var task func(start, end int) error
		task = func(start, end int) error {
			for end-start > s.opts.Threshold {
				mid := start + (end-start)/2
				hiStart, hiEnd := mid, end
				if !g.TryGo(func() error { return task(hiStart, hiEnd) }) {
					break
				}
				end = mid
			}
			return s.runLeaf(gctx, start, end, leaf)
		}
		g.Go(func() error { return task(0, n) })
	}

	return g.Wait()
}

// ForEach runs fn for every index, counting progress. A leaf stops at its
// next entity once another leaf has failed.
func (s *Scheduler) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	return s.Run(ctx, n, func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
			if done := s.processed.Add(1); done%s.opts.ProgressEvery == 0 {
				logger.Info("progress", "batch", s.opts.Name, "processed", done, "total", n)
			}
		}
		return nil
	})
}

func (s *Scheduler) runLeaf(ctx context.Context, start, end int, leaf LeafFunc) (err error) {
	s.leaves.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w [%d,%d): %v", ErrLeafPanic, start, end, r)
		}
	}()
	return leaf(ctx, start, end)
}
