package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// normalize returns counts scaled to sum to one, or nil when the sum is zero
func normalize(counts []float64) []float64 {
	sum := floats.Sum(counts)
	if sum == 0 {
		return nil
	}
	p := make([]float64, len(counts))
	copy(p, counts)
	floats.Scale(1/sum, p)
	return p
}

// ShannonEntropy calculates the Shannon entropy of a distribution
// values: frequency counts or probabilities
// Returns entropy in bits (log base 2)
func ShannonEntropy(values []float64) float64 {
	p := normalize(values)
	if p == nil {
		return 0
	}
	return stat.Entropy(p) / math.Ln2
}

// NormalizedEntropy calculates the normalized Shannon entropy (0 to 1)
// Divides by log2(n) where n is the number of categories
func NormalizedEntropy(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	return ShannonEntropy(values) / math.Log2(float64(len(values)))
}

// KLDivergence calculates D(p || q) in nats. Both arguments may be counts.
// Returns +Inf when p has mass where q has none.
func KLDivergence(p, q []float64) float64 {
	pn, qn := normalize(p), normalize(q)
	if pn == nil || qn == nil {
		return 0
	}
	for i := range pn {
		if pn[i] > 0 && qn[i] == 0 {
			return math.Inf(1)
		}
	}
	return stat.KullbackLeibler(pn, qn)
}

// TotalVariation is half the L1 distance between two distributions
func TotalVariation(p, q []float64) float64 {
	pn, qn := normalize(p), normalize(q)
	if pn == nil || qn == nil {
		return 0
	}
	return 0.5 * floats.Distance(pn, qn, 1)
}
