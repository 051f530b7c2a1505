package stats

import (
	"math"
	"testing"
)

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"uniform four", []float64{5, 5, 5, 5}, 2},
		{"single mass", []float64{0, 7, 0}, 0},
		{"empty", nil, 0},
		{"all zero", []float64{0, 0}, 0},
	}
	for _, tt := range tests {
		if got := ShannonEntropy(tt.values); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := NormalizedEntropy([]float64{1, 1, 1}); math.Abs(got-1) > 1e-12 {
		t.Errorf("NormalizedEntropy uniform = %v", got)
	}
}

func TestDivergences(t *testing.T) {
	p := []float64{1, 1}
	q := []float64{3, 1}
	if got := TotalVariation(p, q); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("TotalVariation = %v, want 0.25", got)
	}
	if got := KLDivergence(p, p); got != 0 {
		t.Errorf("KL(p,p) = %v", got)
	}
	if got := KLDivergence([]float64{1, 1}, []float64{1, 0}); !math.IsInf(got, 1) {
		t.Errorf("KL with missing support = %v", got)
	}
}

func TestChiSquareTest(t *testing.T) {
	res, err := ChiSquareTest([]float64{50, 50}, []float64{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Statistic != 0 || res.DF != 1 || math.Abs(res.PValue-1) > 1e-12 {
		t.Errorf("perfect fit = %+v", res)
	}

	res, err = ChiSquareTest([]float64{90, 10, 0}, []float64{0.5, 0.5, 0})
	if err != nil {
		t.Fatal(err)
	}
	if res.PValue > 1e-6 {
		t.Errorf("expected rejection, p = %v", res.PValue)
	}

	if _, err := ChiSquareTest([]float64{1, 1}, []float64{1, 0}); err == nil {
		t.Error("expected error for observation with zero expectation")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})
	if s.Count != 4 || s.Min != 1 || s.Max != 4 || s.Mean != 2.5 {
		t.Errorf("summary = %+v", s)
	}
	if s.Median != 2 {
		t.Errorf("empirical median = %v, want 2", s.Median)
	}
	if one := Summarize([]float64{3}); one.StdDev != 0 {
		t.Errorf("single value stddev = %v", one.StdDev)
	}
}
