package choice

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/hierarchy"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/random"
	"github.com/SANDAG/ABM-sub008/internal/sampler"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/internal/stats"
)

type employmentEval struct{}

func (employmentEval) Evaluate(u models.SpatialUnit, out []float64) error {
	out[0] = u.Attribute(models.AttrEmployment)
	return nil
}

// shareZones samples zones in proportion to their total size.
type shareZones struct{ cum []float64 }

func (z shareZones) ZoneCumulative(int, int) ([]float64, error) { return z.cum, nil }

func newShareZones(tbl *sizeterm.Table, idx *spatial.Index) shareZones {
	totals := make([]float64, idx.NumZones())
	var sum float64
	for zr := range totals {
		totals[zr] = tbl.ZoneTotal(0, zr)
		sum += totals[zr]
	}
	probs := make([]float64, len(totals))
	for i := range totals {
		probs[i] = totals[i] / sum
	}
	return shareZones{cum: Cumulative(probs)}
}

type sizeOnly struct{}

func (sizeOnly) Utilities(_ Request, alts []Alternative, out []float64) error {
	for i, a := range alts {
		out[i] = a.SizeTerm
	}
	return nil
}

func fixture(t *testing.T, sizes [][2]int) (*hierarchy.Hierarchy, *spatial.Index) {
	t.Helper()
	units := make([]models.SpatialUnit, len(sizes))
	for i, s := range sizes {
		units[i] = models.SpatialUnit{ID: i + 1, ZoneID: s[0], Lat: 32.7 + 0.01*float64(i), Lon: -117.1}
		units[i].LandUse[models.AttrEmployment] = float64(s[1])
	}
	idx, err := spatial.NewIndex(units)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := sizeterm.Compute(context.Background(), []string{"work"}, idx, employmentEval{})
	if err != nil {
		t.Fatal(err)
	}
	return hierarchy.Build(tbl, idx), idx
}

func TestCategoricalDraw(t *testing.T) {
	cum := []float64{0.2, 0.2, 0.7, 1.0}
	tests := []struct {
		u    float64
		want int
	}{
		{0.0, 0},
		{0.19, 0},
		{0.2, 2},
		{0.69, 2},
		{0.7, 3},
		{0.9999, 3},
	}
	for _, tt := range tests {
		if got := CategoricalDraw(cum, tt.u); got != tt.want {
			t.Errorf("CategoricalDraw(%v) = %d, want %d", tt.u, got, tt.want)
		}
	}
	// cumulative short of one clamps to the last positive entry
	if got := CategoricalDraw([]float64{0.5, 0.9, 0.9}, 0.95); got != 1 {
		t.Errorf("clamp = %d, want 1", got)
	}
}

func TestProbabilities(t *testing.T) {
	alts := []Alternative{{Available: true}, {Available: true}, {Available: false}}
	probs, err := Probabilities([]float64{0, math.Log(3), 10}, alts)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(probs[0]-0.25) > 1e-12 || math.Abs(probs[1]-0.75) > 1e-12 || probs[2] != 0 {
		t.Errorf("probs = %v", probs)
	}

	_, err = Probabilities([]float64{1, 2}, []Alternative{{}, {}})
	if !errors.Is(err, ErrNoAvailableAlternatives) {
		t.Errorf("expected ErrNoAvailableAlternatives, got %v", err)
	}
	_, err = Probabilities([]float64{math.Inf(-1), math.NaN()}, nil)
	if !errors.Is(err, ErrNoAvailableAlternatives) {
		t.Errorf("expected ErrNoAvailableAlternatives for non-finite utilities, got %v", err)
	}
}

func TestChooseDuplicatesAreOneAlternative(t *testing.T) {
	h, idx := fixture(t, [][2]int{{1, 10}, {1, 20}})
	eng := NewEngine(idx, sizeOnly{}, nil)

	s := &sampler.Sample{Alternatives: []sampler.Alternative{
		{UnitID: 2, UnitRow: 1, ZoneID: 1, SizeTerm: h.Table().LogWeight(0, 1), Correction: 1},
		{UnitID: 2, UnitRow: 1, ZoneID: 1, SizeTerm: h.Table().LogWeight(0, 1), Correction: 1},
	}}
	alts := eng.Alternatives(Request{OriginUnitRow: -1}, s)
	if !alts[0].Available || alts[1].Available {
		t.Errorf("availability = %v, %v", alts[0].Available, alts[1].Available)
	}

	res, err := eng.Choose(random.New(1), Request{OriginUnitRow: -1}, s)
	if err != nil {
		t.Fatal(err)
	}
	if res.Index != 0 || res.Probability != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestChooseNoAvailable(t *testing.T) {
	_, idx := fixture(t, [][2]int{{1, 0}, {1, 5}})
	eng := NewEngine(idx, sizeOnly{}, nil)
	s := &sampler.Sample{Alternatives: []sampler.Alternative{{UnitID: 1, UnitRow: 0, ZoneID: 1}}}

	_, err := eng.Choose(random.New(1), Request{OriginUnitRow: 0}, s)
	if !errors.Is(err, ErrNoAvailableAlternatives) {
		t.Errorf("expected ErrNoAvailableAlternatives, got %v", err)
	}
}

func TestChooseDeterministic(t *testing.T) {
	h, idx := fixture(t, [][2]int{{1, 10}, {1, 30}, {2, 5}, {2, 20}, {3, 40}})
	smp := sampler.New(h, newShareZones(h.Table(), idx), sampler.ScaleZoneOffset)
	eng := NewEngine(idx, &DestinationUtility{SizeCoef: 1, DistanceCoef: []float64{-0.1}}, nil)

	run := func() Result {
		rng := random.New(99)
		s, err := smp.Sample(rng, 0, 0, 20, 0)
		if err != nil {
			t.Fatal(err)
		}
		r, err := eng.Choose(rng, Request{OriginUnitRow: 0}, s)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed chose %+v then %+v", a, b)
	}
}

// With utility log(1+size) the full-choice-set logit gives each unit a
// probability proportional to 1+size. The corrected choice over samples of
// 30 must reproduce it.
func TestSampledChoiceUnbiased(t *testing.T) {
	sizes := [][2]int{{1, 10}, {1, 30}, {1, 5}, {2, 20}, {2, 40}, {2, 15}}
	h, idx := fixture(t, sizes)
	smp := sampler.New(h, newShareZones(h.Table(), idx), sampler.ScaleZoneOffset)
	eng := NewEngine(idx, sizeOnly{}, nil)

	truth := make([]float64, len(sizes))
	var sum float64
	for i, s := range sizes {
		truth[i] = 1 + float64(s[1])
		sum += truth[i]
	}
	for i := range truth {
		truth[i] /= sum
	}

	const trials = 20000
	counts := make([]float64, len(sizes))
	for trial := 0; trial < trials; trial++ {
		rng := random.New(random.SeedFor(1000001, trial, 1))
		s, err := smp.Sample(rng, 0, 0, 30, 0)
		if err != nil {
			t.Fatal(err)
		}
		r, err := eng.Choose(rng, Request{EntityID: trial, OriginUnitRow: -1}, s)
		if err != nil {
			t.Fatal(err)
		}
		counts[r.UnitRow]++
	}

	if tv := stats.TotalVariation(counts, truth); tv > 0.02 {
		t.Errorf("total variation %.4f exceeds 0.02; counts %v", tv, counts)
	}
	res, err := stats.ChiSquareTest(counts, truth)
	if err != nil {
		t.Fatal(err)
	}
	if res.PValue < 1e-4 {
		t.Errorf("chi-square rejects the full-set distribution: %+v", res)
	}
}

func TestGravityZoneModel(t *testing.T) {
	h, idx := fixture(t, [][2]int{{1, 10}, {2, 0}, {3, 10}})
	g, err := NewGravityZoneModel(h.Table(), idx, []float64{-0.5})
	if err != nil {
		t.Fatal(err)
	}

	cum, err := g.ZoneCumulative(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cum) != 3 || math.Abs(cum[2]-1) > 1e-12 {
		t.Fatalf("cum = %v", cum)
	}
	if cum[1] != cum[0] {
		t.Errorf("empty zone got probability %v", cum[1]-cum[0])
	}
	// equal size, zone 1 is the origin so it is closer
	if cum[0] <= 0.5 {
		t.Errorf("origin zone probability %v, want > 0.5", cum[0])
	}

	again, _ := g.ZoneCumulative(0, 0)
	if &again[0] != &cum[0] {
		t.Error("second call did not use the cache")
	}

	if _, err := NewGravityZoneModel(h.Table(), idx, nil); err == nil {
		t.Error("expected coefficient count error")
	}
}
