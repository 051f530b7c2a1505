package sizeterm

import (
	"fmt"

	"github.com/SANDAG/ABM-sub008/internal/models"
)

// LinearEvaluator computes a size term as a weighted sum of land-use
// attributes.
type LinearEvaluator struct {
	coefs [][models.NumAttributes]float64
}

// NewLinearEvaluator arranges coefficient rows by purpose order. Every
// purpose must have at least one row; rows for other purposes are ignored.
func NewLinearEvaluator(purposes []string, rows []models.SizeCoefficient) (*LinearEvaluator, error) {
	pos := make(map[string]int, len(purposes))
	for i, p := range purposes {
		pos[p] = i
	}

	e := &LinearEvaluator{coefs: make([][models.NumAttributes]float64, len(purposes))}
	found := make([]bool, len(purposes))
	for _, r := range rows {
		i, ok := pos[r.Purpose]
		if !ok {
			continue
		}
		if r.Attribute < 0 || r.Attribute >= models.NumAttributes {
			return nil, fmt.Errorf("invalid attribute %d for purpose %s", r.Attribute, r.Purpose)
		}
		e.coefs[i][r.Attribute] += r.Coefficient
		found[i] = true
	}
	for i, ok := range found {
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPurpose, purposes[i])
		}
	}
	return e, nil
}

// Evaluate implements Evaluator.
func (e *LinearEvaluator) Evaluate(unit models.SpatialUnit, out []float64) error {
	if len(out) != len(e.coefs) {
		return fmt.Errorf("expected %d purposes, got %d", len(e.coefs), len(out))
	}
	for p := range e.coefs {
		var s float64
		for a := models.Attribute(0); a < models.NumAttributes; a++ {
			if c := e.coefs[p][a]; c != 0 {
				s += c * unit.Attribute(a)
			}
		}
		out[p] = s
	}
	return nil
}
