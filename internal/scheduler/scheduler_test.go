package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/random"
)

func configs() []Options {
	return []Options{
		{Concurrent: false},
		{Concurrent: true, Parallelism: 1},
		{Concurrent: true, Parallelism: 4, Threshold: 7, Policy: PolicyDivide},
		{Concurrent: true, Parallelism: 16, Threshold: 1, Policy: PolicyDivide},
		{Concurrent: true, Parallelism: 3, Policy: PolicyStatic},
		{Concurrent: true, Parallelism: 64, Policy: PolicyStatic},
	}
}

func TestEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 5, 1000, 4097} {
		for _, opts := range configs() {
			t.Run(fmt.Sprintf("n=%d/%+v", n, opts), func(t *testing.T) {
				counts := make([]atomic.Int32, n)
				s := New(opts)
				err := s.Run(context.Background(), n, func(_ context.Context, start, end int) error {
					for i := start; i < end; i++ {
						counts[i].Add(1)
					}
					return nil
				})
				if err != nil {
					t.Fatal(err)
				}
				for i := range counts {
					if c := counts[i].Load(); c != 1 {
						t.Fatalf("index %d processed %d times", i, c)
					}
				}
			})
		}
	}
}

func TestDivideSplitsWork(t *testing.T) {
	s := New(Options{Concurrent: true, Parallelism: 8, Threshold: 10})
	if err := s.Run(context.Background(), 1000, func(context.Context, int, int) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if s.Leaves() < 2 {
		t.Errorf("expected the range to be split, got %d leaves", s.Leaves())
	}
}

func TestErrorPropagates(t *testing.T) {
	boom := errors.New("no available alternatives")
	for _, opts := range configs() {
		s := New(opts)
		err := s.ForEach(context.Background(), 3000, func(_ context.Context, i int) error {
			if i == 1234 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("%+v: expected boom, got %v", opts, err)
		}
	}
}

func TestPanicBecomesError(t *testing.T) {
	for _, opts := range configs() {
		s := New(opts)
		err := s.ForEach(context.Background(), 100, func(_ context.Context, i int) error {
			if i == 42 {
				panic("bad entity")
			}
			return nil
		})
		if !errors.Is(err, ErrLeafPanic) {
			t.Errorf("%+v: expected ErrLeafPanic, got %v", opts, err)
		}
	}
}

func TestResultsIndependentOfPartition(t *testing.T) {
	const n = 2500
	run := func(opts Options) []float64 {
		out := make([]float64, n)
		s := New(opts)
		err := s.ForEach(context.Background(), n, func(_ context.Context, i int) error {
			rng := random.New(random.SeedFor(1000001, i, 1))
			var v float64
			for k := 0; k < 10; k++ {
				v += rng.Float64()
			}
			out[i] = v
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if s.Processed() != n {
			t.Fatalf("processed %d, want %d", s.Processed(), n)
		}
		return out
	}

	want := run(Options{})
	for _, opts := range configs()[1:] {
		got := run(opts)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%+v: entity %d differs", opts, i)
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyDivide {
		t.Errorf("default = %q, %v", p, err)
	}
	if _, err := ParsePolicy("steal"); err == nil {
		t.Error("expected error")
	}
}
