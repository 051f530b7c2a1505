// Package choice makes the final pick among sampled alternatives with a
// multinomial logit over utilities supplied by a UtilityModel.
package choice

import (
	"errors"
	"fmt"
	"math"

	"github.com/SANDAG/ABM-sub008/internal/sampler"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

var ErrNoAvailableAlternatives = errors.New("no available alternatives")

// Alternative carries the attributes a UtilityModel may use.
type Alternative struct {
	UnitID     int
	UnitRow    int
	ZoneID     int
	SizeTerm   float64
	DistanceKm float64
	Logsum     float64
	Correction float64
	Available  bool
}

// Request describes one choice event.
type Request struct {
	EntityID      int
	Purpose       int
	OriginUnitRow int
	Debug         bool
}

// UtilityModel fills out with one systematic utility per alternative. The
// engine adds the sampling correction afterwards.
type UtilityModel interface {
	Utilities(req Request, alts []Alternative, out []float64) error
}

// LogsumProvider returns the mode-choice logsum between two unit rows.
type LogsumProvider interface {
	Logsum(purpose, originRow, destRow int) float64
}

// Result is the chosen entry of the sample.
type Result struct {
	Index       int
	UnitID      int
	UnitRow     int
	ZoneID      int
	Probability float64
}

// Engine is safe for concurrent use when its UtilityModel and
// LogsumProvider are.
type Engine struct {
	index   *spatial.Index
	utility UtilityModel
	logsums LogsumProvider
}

// NewEngine creates an engine. logsums may be nil.
func NewEngine(idx *spatial.Index, utility UtilityModel, logsums LogsumProvider) *Engine {
	return &Engine{index: idx, utility: utility, logsums: logsums}
}

// Choose evaluates the sample and draws one alternative with rng. Repeated
// draws of a unit are one alternative: only the first entry of each unit is
// available, carrying the correction for its full frequency.
func (e *Engine) Choose(rng sampler.Uniform, req Request, s *sampler.Sample) (Result, error) {
	alts := e.Alternatives(req, s)

	utils := make([]float64, len(alts))
	if err := e.utility.Utilities(req, alts, utils); err != nil {
		return Result{}, fmt.Errorf("failed to evaluate utilities: %w", err)
	}
	for i := range utils {
		utils[i] += alts[i].Correction
	}

	probs, err := Probabilities(utils, alts)
	if err != nil {
		return Result{}, fmt.Errorf("entity %d: %w", req.EntityID, err)
	}
	cum := Cumulative(probs)

	u := rng.Float64()
	i := CategoricalDraw(cum, u)

	if req.Debug {
		for j, a := range alts {
			logger.Debug("alternative",
				"entity", req.EntityID,
				"index", j,
				"unit", a.UnitID,
				"size", a.SizeTerm,
				"km", a.DistanceKm,
				"logsum", a.Logsum,
				"correction", a.Correction,
				"utility", utils[j],
				"probability", probs[j])
		}
		logger.Debug("chose alternative", "entity", req.EntityID, "index", i, "unit", alts[i].UnitID, "random", u)
	}

	return Result{
		Index:       i,
		UnitID:      alts[i].UnitID,
		UnitRow:     alts[i].UnitRow,
		ZoneID:      alts[i].ZoneID,
		Probability: probs[i],
	}, nil
}

// Alternatives builds the attribute rows for a sample.
func (e *Engine) Alternatives(req Request, s *sampler.Sample) []Alternative {
	alts := make([]Alternative, len(s.Alternatives))
	seen := make(map[int]bool, len(s.Alternatives))
	for i, sa := range s.Alternatives {
		a := Alternative{
			UnitID:     sa.UnitID,
			UnitRow:    sa.UnitRow,
			ZoneID:     sa.ZoneID,
			SizeTerm:   sa.SizeTerm,
			Correction: sa.Correction,
			Available:  !seen[sa.UnitRow] && (sa.SizeTerm > 0 || sa.Fallback),
		}
		seen[sa.UnitRow] = true
		if req.OriginUnitRow >= 0 {
			a.DistanceKm = e.index.UnitDistanceKm(req.OriginUnitRow, sa.UnitRow)
			if e.logsums != nil {
				a.Logsum = e.logsums.Logsum(req.Purpose, req.OriginUnitRow, sa.UnitRow)
			}
		}
		alts[i] = a
	}
	return alts
}

// Probabilities converts utilities to logit probabilities. Unavailable
// alternatives and non-finite utilities get zero probability.
func Probabilities(utils []float64, alts []Alternative) ([]float64, error) {
	maxU := math.Inf(-1)
	for i, v := range utils {
		if usable(v, alts, i) && v > maxU {
			maxU = v
		}
	}
	if math.IsInf(maxU, -1) {
		return nil, ErrNoAvailableAlternatives
	}

	probs := make([]float64, len(utils))
	var sum float64
	for i, v := range utils {
		if !usable(v, alts, i) {
			continue
		}
		probs[i] = math.Exp(v - maxU)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

func usable(v float64, alts []Alternative, i int) bool {
	if alts != nil && !alts[i].Available {
		return false
	}
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Cumulative returns the running sum of probs.
func Cumulative(probs []float64) []float64 {
	cum := make([]float64, len(probs))
	var c float64
	for i, p := range probs {
		c += p
		cum[i] = c
	}
	return cum
}

// CategoricalDraw returns the first index whose cumulative value exceeds u,
// clamped to the last index with positive mass.
func CategoricalDraw(cum []float64, u float64) int {
	last := -1
	prev := 0.0
	for i, c := range cum {
		if c > prev {
			last = i
			if c > u {
				return i
			}
		}
		prev = c
	}
	if last < 0 {
		return len(cum) - 1
	}
	return last
}
