package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquareResult is the outcome of a goodness-of-fit test
type ChiSquareResult struct {
	Statistic float64
	DF        int
	PValue    float64
}

// ChiSquareTest compares observed counts with expected probabilities.
// Categories with zero expected probability must have zero observations.
func ChiSquareTest(observed, expectedProb []float64) (ChiSquareResult, error) {
	if len(observed) != len(expectedProb) {
		return ChiSquareResult{}, fmt.Errorf("length mismatch: %d observed, %d expected", len(observed), len(expectedProb))
	}

	n := floats.Sum(observed)
	var obs, exp []float64
	for i, p := range expectedProb {
		if p == 0 {
			if observed[i] != 0 {
				return ChiSquareResult{}, fmt.Errorf("category %d observed with zero expected probability", i)
			}
			continue
		}
		obs = append(obs, observed[i])
		exp = append(exp, p*n)
	}
	if len(obs) < 2 {
		return ChiSquareResult{}, fmt.Errorf("need at least two categories, got %d", len(obs))
	}

	x := stat.ChiSquare(obs, exp)
	df := len(obs) - 1
	return ChiSquareResult{
		Statistic: x,
		DF:        df,
		PValue:    distuv.ChiSquared{K: float64(df)}.Survival(x),
	}, nil
}
