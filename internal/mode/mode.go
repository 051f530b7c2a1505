// Package mode is a distance-based logit over travel modes. It supplies
// tour and trip mode choices and the logsums carried by sampled
// destinations.
package mode

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/SANDAG/ABM-sub008/internal/choice"
	"github.com/SANDAG/ABM-sub008/internal/sampler"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

// Mode is a travel mode.
type Mode int

const (
	Drive Mode = iota
	SharedRide
	Transit
	Walk
	RideHail

	NumModes
)

var modeNames = [NumModes]string{"drive", "shared_ride", "transit", "walk", "ride_hail"}

func (m Mode) String() string {
	if m < 0 || m >= NumModes {
		return "unknown"
	}
	return modeNames[m]
}

// Params are the coefficients of the mode utilities.
type Params struct {
	Constants [NumModes]float64 `yaml:"constants"`
	SpeedKmh  [NumModes]float64 `yaml:"speed_kmh" validate:"dive,gt=0"`
	CostPerKm [NumModes]float64 `yaml:"cost_per_km"`
	TimeCoef  float64           `yaml:"time_coef" validate:"lte=0"`
	CostCoef  float64           `yaml:"cost_coef" validate:"lte=0"`
	MaxWalkKm float64           `yaml:"max_walk_km" validate:"gt=0"`
}

// DefaultParams returns uncalibrated placeholder coefficients.
func DefaultParams() Params {
	return Params{
		Constants: [NumModes]float64{0, -0.8, -1.5, 0.5, -1.2},
		SpeedKmh:  [NumModes]float64{45, 45, 20, 4.8, 40},
		CostPerKm: [NumModes]float64{0.35, 0.18, 0.10, 0, 1.60},
		TimeCoef:  -0.04,
		CostCoef:  -0.30,
		MaxWalkKm: 3,
	}
}

// Model evaluates mode utilities between units.
type Model struct {
	params Params
	index  *spatial.Index
}

// NewModel creates a mode model over idx.
func NewModel(p Params, idx *spatial.Index) *Model {
	return &Model{params: p, index: idx}
}

// Utilities fills the utility of every mode for a trip of km kilometers.
// Unavailable modes get -Inf.
func (m *Model) Utilities(km float64, out *[NumModes]float64) {
	for md := Mode(0); md < NumModes; md++ {
		if md == Walk && km > m.params.MaxWalkKm {
			out[md] = math.Inf(-1)
			continue
		}
		minutes := km / m.params.SpeedKmh[md] * 60
		out[md] = m.params.Constants[md] +
			m.params.TimeCoef*minutes +
			m.params.CostCoef*m.params.CostPerKm[md]*km
	}
}

// Logsum is the expected maximum utility between two unit rows.
// It implements choice.LogsumProvider.
func (m *Model) Logsum(_ int, originRow, destRow int) float64 {
	var u [NumModes]float64
	m.Utilities(m.index.UnitDistanceKm(originRow, destRow), &u)
	return floats.LogSumExp(u[:])
}

// Choose draws a mode between two unit rows.
func (m *Model) Choose(rng sampler.Uniform, originRow, destRow int) (Mode, error) {
	var u [NumModes]float64
	m.Utilities(m.index.UnitDistanceKm(originRow, destRow), &u)

	probs, err := choice.Probabilities(u[:], nil)
	if err != nil {
		return 0, fmt.Errorf("mode choice: %w", err)
	}
	return Mode(choice.CategoricalDraw(choice.Cumulative(probs), rng.Float64())), nil
}
