// Package sampler draws a fixed-size sample of (zone, unit) alternatives
// with replacement and attaches the sampling-of-alternatives correction to
// every entry.
//
// A single uniform draw selects both the zone and the unit inside it: the
// zone from the zone-level cumulative distribution, then the unit from the
// zone's unit distribution scaled by the zone's probability. Units drawn
// more often than their probability warrants receive a lower correction.
package sampler

import (
	"fmt"
	"math"
	"sort"

	"github.com/SANDAG/ABM-sub008/internal/hierarchy"
	"github.com/SANDAG/ABM-sub008/internal/metrics"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// ScalingMode selects where unit thresholds start inside a chosen zone.
type ScalingMode string

const (
	// ScaleZoneOffset starts unit thresholds at the previous zone's
	// cumulative value, so the draw lands in a unit with probability
	// altProb times the unit's share.
	ScaleZoneOffset ScalingMode = "zone_offset"
	// ScaleInclusive starts unit thresholds at the chosen zone's own
	// cumulative value. Kept to reproduce legacy stop-location results,
	// where it always selects the first positive unit of the zone.
	ScaleInclusive ScalingMode = "inclusive"
)

// ParseScalingMode validates a configured mode. Empty means ScaleZoneOffset.
func ParseScalingMode(s string) (ScalingMode, error) {
	switch ScalingMode(s) {
	case "", ScaleZoneOffset:
		return ScaleZoneOffset, nil
	case ScaleInclusive:
		return ScaleInclusive, nil
	}
	return "", fmt.Errorf("unknown scaling mode %q", s)
}

// Uniform is a source of uniform draws in [0, 1).
type Uniform interface {
	Float64() float64
}

// ZoneChoiceModel supplies the zone-level cumulative distribution over
// zone rows for an origin zone row. The returned slice is read-only.
type ZoneChoiceModel interface {
	ZoneCumulative(purpose, originZoneRow int) ([]float64, error)
}

// Alternative is one sampled entry.
type Alternative struct {
	ZoneID  int `json:"zone_id"`
	ZoneRow int `json:"-"`
	UnitID  int `json:"unit_id"`
	UnitRow int `json:"-"`

	// SizeTerm is log(1 + size) of the unit
	SizeTerm float64 `json:"size_term"`
	// Probability is altProb times the unit's share, at the unit's first draw
	Probability float64 `json:"probability"`
	Frequency   int     `json:"frequency"`
	Correction  float64 `json:"correction"`
	// Fallback marks an entry drawn from a zone without positive size
	Fallback bool `json:"fallback"`
}

// Sample is the ordered result of K draws.
type Sample struct {
	Purpose      int           `json:"purpose"`
	Alternatives []Alternative `json:"alternatives"`
	Fallbacks    int           `json:"fallbacks"`
}

// Sampler is safe for concurrent use; all per-call state lives in the
// returned Sample.
type Sampler struct {
	hier  *hierarchy.Hierarchy
	zones ZoneChoiceModel
	mode  ScalingMode
}

// New returns a sampler over a built hierarchy.
func New(h *hierarchy.Hierarchy, zones ZoneChoiceModel, mode ScalingMode) *Sampler {
	if mode == "" {
		mode = ScaleZoneOffset
	}
	return &Sampler{hier: h, zones: zones, mode: mode}
}

// Mode returns the configured scaling mode.
func (s *Sampler) Mode() ScalingMode { return s.mode }

// Sample draws k alternatives for an entity. fallbackUnitRow replaces draws
// that land in a zone without positive size, usually the entity's origin.
func (s *Sampler) Sample(rng Uniform, purpose, originZoneRow, k, fallbackUnitRow int) (*Sample, error) {
	if k <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", k)
	}

	zoneCum, err := s.zones.ZoneCumulative(purpose, originZoneRow)
	if err != nil {
		return nil, fmt.Errorf("failed to get zone probabilities: %w", err)
	}
	if len(zoneCum) != s.hier.Index().NumZones() {
		return nil, fmt.Errorf("zone distribution has %d entries, expected %d", len(zoneCum), s.hier.Index().NumZones())
	}

	out := &Sample{
		Purpose:      purpose,
		Alternatives: make([]Alternative, k),
	}
	freq := make(map[int]int, k)
	prob := make(map[int]float64, k)

	for i := 0; i < k; i++ {
		u := rng.Float64()
		alt := s.draw(u, purpose, zoneCum, fallbackUnitRow)
		if alt.Fallback {
			out.Fallbacks++
		} else if _, seen := prob[alt.UnitRow]; !seen {
			prob[alt.UnitRow] = alt.Probability
		}
		freq[alt.UnitRow]++
		out.Alternatives[i] = alt
	}

	for i := range out.Alternatives {
		a := &out.Alternatives[i]
		a.Frequency = freq[a.UnitRow]
		p, ok := prob[a.UnitRow]
		if !ok {
			// only ever reached through the fallback; no sampling probability
			a.Probability = 0
			a.Correction = 0
			continue
		}
		a.Probability = p
		a.Correction = math.Log(float64(a.Frequency) / p)
	}

	return out, nil
}

// lastPositiveZone returns the last zone with positive probability, or the last
// zone when none has any.
func lastPositiveZone(zoneCum []float64) int {
	for z := len(zoneCum) - 1; z > 0; z-- {
		if zoneCum[z] > zoneCum[z-1] {
			return z
		}
	}
	if len(zoneCum) > 0 && zoneCum[0] > 0 {
		return 0
	}
	return len(zoneCum) - 1
}

func (s *Sampler) draw(u float64, purpose int, zoneCum []float64, fallbackUnitRow int) Alternative {
	idx := s.hier.Index()
	tbl := s.hier.Table()

	z := sort.Search(len(zoneCum), func(i int) bool { return zoneCum[i] > u })
	if z == len(zoneCum) {
		z = lastPositiveZone(zoneCum)
	}
	base := 0.0
	if z > 0 {
		base = zoneCum[z-1]
	}
	altProb := zoneCum[z] - base

	dist := s.hier.Distribution(purpose, z)
	if dist.Degenerate || altProb <= 0 {
		metrics.DegenerateFallbacks.WithLabelValues(tbl.Purposes()[purpose]).Inc()
		logger.Error("sampled zone has no positive size",
			"purpose", tbl.Purposes()[purpose],
			"zone", idx.ZoneID(z),
			"fallback_unit", idx.Unit(fallbackUnitRow).ID)
		return s.alternative(purpose, idx.ZoneRowOfUnit(fallbackUnitRow), fallbackUnitRow, 0, true)
	}

	if s.mode == ScaleInclusive {
		base = zoneCum[z]
	}

	chosen := -1
	lastPositive := -1
	for i := range dist.Units {
		delta := dist.Delta(i)
		if delta <= 0 {
			continue
		}
		lastPositive = i
		if base+altProb*dist.Cumulative[i] > u {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		chosen = lastPositive
	}

	return s.alternative(purpose, z, dist.Units[chosen], altProb*dist.Delta(chosen), false)
}

func (s *Sampler) alternative(purpose, zoneRow, unitRow int, p float64, fallback bool) Alternative {
	idx := s.hier.Index()
	return Alternative{
		ZoneID:      idx.ZoneID(zoneRow),
		ZoneRow:     zoneRow,
		UnitID:      idx.Unit(unitRow).ID,
		UnitRow:     unitRow,
		SizeTerm:    s.hier.Table().LogWeight(purpose, unitRow),
		Probability: p,
		Fallback:    fallback,
	}
}
