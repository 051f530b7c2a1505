// Package sizeterm computes per-unit attractiveness weights and their
// zone-level aggregates. A Table is built once per run and read by every
// worker without locking.
package sizeterm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

var (
	ErrNegativeSize   = errors.New("size term must be finite and non-negative")
	ErrMissingPurpose = errors.New("no size coefficients for purpose")
	ErrUnknownPurpose = errors.New("unknown purpose")
)

// Evaluator produces the size terms of one unit for every purpose in a
// single call. out has one slot per purpose, in Table purpose order.
type Evaluator interface {
	Evaluate(unit models.SpatialUnit, out []float64) error
}

// Table holds size terms per (purpose, unit row) and aggregates per
// (purpose, zone row).
type Table struct {
	purposes   []string
	purposeIdx map[string]int
	weights    [][]float64
	zoneTotals [][]float64
	aggregates [][]float64
}

// Compute evaluates every unit once and aggregates by zone. Any evaluator
// error or invalid weight aborts the build; no partial table is returned.
func Compute(ctx context.Context, purposes []string, idx *spatial.Index, eval Evaluator) (*Table, error) {
	if len(purposes) == 0 {
		return nil, fmt.Errorf("failed to compute size terms: no purposes")
	}

	t := &Table{
		purposes:   append([]string(nil), purposes...),
		purposeIdx: make(map[string]int, len(purposes)),
		weights:    make([][]float64, len(purposes)),
		zoneTotals: make([][]float64, len(purposes)),
		aggregates: make([][]float64, len(purposes)),
	}
	for p, name := range purposes {
		if _, dup := t.purposeIdx[name]; dup {
			return nil, fmt.Errorf("failed to compute size terms: duplicate purpose %q", name)
		}
		t.purposeIdx[name] = p
		t.weights[p] = make([]float64, idx.NumUnits())
		t.zoneTotals[p] = make([]float64, idx.NumZones())
		t.aggregates[p] = make([]float64, idx.NumZones())
	}

	out := make([]float64, len(purposes))
	for row := 0; row < idx.NumUnits(); row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		unit := idx.Unit(row)
		for i := range out {
			out[i] = 0
		}
		if err := eval.Evaluate(unit, out); err != nil {
			return nil, fmt.Errorf("failed to evaluate size terms for unit %d: %w", unit.ID, err)
		}
		for p, w := range out {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: unit %d purpose %s value %v", ErrNegativeSize, unit.ID, purposes[p], w)
			}
			t.weights[p][row] = w
		}
	}

	for p := range purposes {
		empty := 0
		for zr := 0; zr < idx.NumZones(); zr++ {
			var total float64
			for _, row := range idx.MemberRows(zr) {
				total += t.weights[p][row]
			}
			t.zoneTotals[p][zr] = total
			if total > 0 {
				t.aggregates[p][zr] = math.Log1p(total)
			} else {
				empty++
			}
		}
		if empty > 0 {
			logger.Debug("zones without size", "purpose", purposes[p], "zones", empty)
		}
	}

	return t, nil
}

// Purposes returns the purpose names in table order.
func (t *Table) Purposes() []string { return t.purposes }

// NumPurposes returns the number of purposes.
func (t *Table) NumPurposes() int { return len(t.purposes) }

// PurposeIndex maps a purpose name to its index.
func (t *Table) PurposeIndex(name string) (int, error) {
	p, ok := t.purposeIdx[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPurpose, name)
	}
	return p, nil
}

// Weight is the raw size term of a unit row.
func (t *Table) Weight(purpose, unitRow int) float64 { return t.weights[purpose][unitRow] }

// LogWeight is log(1 + weight), the size variable of the final choice.
func (t *Table) LogWeight(purpose, unitRow int) float64 {
	return math.Log1p(t.weights[purpose][unitRow])
}

// ZoneTotal is the summed size of a zone row.
func (t *Table) ZoneTotal(purpose, zoneRow int) float64 { return t.zoneTotals[purpose][zoneRow] }

// ZoneAggregate is log(1 + ZoneTotal); zero for empty zones.
func (t *Table) ZoneAggregate(purpose, zoneRow int) float64 { return t.aggregates[purpose][zoneRow] }
