package sizeterm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

type evalFunc func(models.SpatialUnit, []float64) error

func (f evalFunc) Evaluate(u models.SpatialUnit, out []float64) error { return f(u, out) }

func fixture(t *testing.T) *spatial.Index {
	t.Helper()
	units := []models.SpatialUnit{
		{ID: 1, ZoneID: 10},
		{ID: 2, ZoneID: 10},
		{ID: 3, ZoneID: 10},
		{ID: 4, ZoneID: 20},
	}
	units[0].LandUse[models.AttrEmployment] = 10
	units[1].LandUse[models.AttrEmployment] = 20
	units[1].LandUse[models.AttrHotelRooms] = 5
	idx, err := spatial.NewIndex(units)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestComputeAggregates(t *testing.T) {
	idx := fixture(t)
	eval, err := NewLinearEvaluator([]string{"work", "recreation"}, []models.SizeCoefficient{
		{Purpose: "work", Attribute: models.AttrEmployment, Coefficient: 1},
		{Purpose: "recreation", Attribute: models.AttrHotelRooms, Coefficient: 2},
		{Purpose: "other", Attribute: models.AttrPopulation, Coefficient: 9},
	})
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := Compute(context.Background(), []string{"work", "recreation"}, idx, eval)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	work, _ := tbl.PurposeIndex("work")
	rec, _ := tbl.PurposeIndex("recreation")
	z10, _ := idx.ZoneRow(10)
	z20, _ := idx.ZoneRow(20)

	if got := tbl.ZoneTotal(work, z10); got != 30 {
		t.Errorf("work total zone 10 = %v, want 30", got)
	}
	if got := tbl.ZoneAggregate(work, z10); math.Abs(got-math.Log(31)) > 1e-12 {
		t.Errorf("work aggregate zone 10 = %v, want log(31)", got)
	}
	if got := tbl.ZoneAggregate(work, z20); got != 0 {
		t.Errorf("empty zone aggregate = %v, want 0", got)
	}
	if got := tbl.ZoneTotal(rec, z10); got != 10 {
		t.Errorf("recreation total = %v, want 10", got)
	}
	r2, _ := idx.UnitRow(2)
	if got := tbl.LogWeight(work, r2); math.Abs(got-math.Log(21)) > 1e-12 {
		t.Errorf("LogWeight = %v", got)
	}
}

func TestComputeBatchesByUnit(t *testing.T) {
	idx := fixture(t)
	calls := 0
	eval := evalFunc(func(_ models.SpatialUnit, out []float64) error {
		calls++
		for i := range out {
			out[i] = 1
		}
		return nil
	})

	if _, err := Compute(context.Background(), []string{"a", "b", "c"}, idx, eval); err != nil {
		t.Fatal(err)
	}
	if calls != idx.NumUnits() {
		t.Errorf("evaluator called %d times, want one per unit (%d)", calls, idx.NumUnits())
	}
}

func TestComputeFailures(t *testing.T) {
	idx := fixture(t)
	boom := errors.New("boom")

	tests := []struct {
		name string
		eval Evaluator
		want error
	}{
		{"evaluator error", evalFunc(func(models.SpatialUnit, []float64) error { return boom }), boom},
		{"negative weight", evalFunc(func(_ models.SpatialUnit, out []float64) error {
			out[0] = -1
			return nil
		}), ErrNegativeSize},
		{"nan weight", evalFunc(func(_ models.SpatialUnit, out []float64) error {
			out[0] = math.NaN()
			return nil
		}), ErrNegativeSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Compute(context.Background(), []string{"work"}, idx, tt.eval)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if tbl != nil {
				t.Error("partial table returned")
			}
		})
	}
}

func TestMissingPurpose(t *testing.T) {
	_, err := NewLinearEvaluator([]string{"work", "dining"}, []models.SizeCoefficient{
		{Purpose: "work", Attribute: models.AttrEmployment, Coefficient: 1},
	})
	if !errors.Is(err, ErrMissingPurpose) {
		t.Errorf("expected ErrMissingPurpose, got %v", err)
	}
}
