package choice

import (
	"fmt"
	"math"
	"sync"

	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

// DestinationUtility is a linear utility over size, distance and logsum.
type DestinationUtility struct {
	SizeCoef     float64
	DistanceCoef []float64 // by purpose
	LogsumCoef   float64
}

// Utilities implements UtilityModel.
func (m *DestinationUtility) Utilities(req Request, alts []Alternative, out []float64) error {
	if req.Purpose < 0 || req.Purpose >= len(m.DistanceCoef) {
		return fmt.Errorf("no distance coefficient for purpose %d", req.Purpose)
	}
	dc := m.DistanceCoef[req.Purpose]
	for i, a := range alts {
		out[i] = m.SizeCoef*a.SizeTerm + dc*a.DistanceKm + m.LogsumCoef*a.Logsum
	}
	return nil
}

// GravityZoneModel supplies zone-level probabilities from zone aggregates
// and centroid distance. Results are cached per (purpose, origin zone) and
// shared read-only between workers.
type GravityZoneModel struct {
	table        *sizeterm.Table
	index        *spatial.Index
	distanceCoef []float64
	cache        sync.Map // key -> []float64
}

// NewGravityZoneModel creates the model. distanceCoef is indexed by purpose.
func NewGravityZoneModel(tbl *sizeterm.Table, idx *spatial.Index, distanceCoef []float64) (*GravityZoneModel, error) {
	if len(distanceCoef) != tbl.NumPurposes() {
		return nil, fmt.Errorf("expected %d distance coefficients, got %d", tbl.NumPurposes(), len(distanceCoef))
	}
	return &GravityZoneModel{table: tbl, index: idx, distanceCoef: distanceCoef}, nil
}

type zoneKey struct{ purpose, origin int }

// ZoneCumulative implements sampler.ZoneChoiceModel.
func (g *GravityZoneModel) ZoneCumulative(purpose, originZoneRow int) ([]float64, error) {
	key := zoneKey{purpose, originZoneRow}
	if v, ok := g.cache.Load(key); ok {
		return v.([]float64), nil
	}

	n := g.index.NumZones()
	utils := make([]float64, n)
	for z := 0; z < n; z++ {
		agg := g.table.ZoneAggregate(purpose, z)
		if agg <= 0 {
			utils[z] = math.Inf(-1)
			continue
		}
		utils[z] = agg + g.distanceCoef[purpose]*g.index.ZoneDistanceKm(originZoneRow, z)
	}

	probs, err := Probabilities(utils, nil)
	if err != nil {
		return nil, fmt.Errorf("purpose %s origin zone %d: %w",
			g.table.Purposes()[purpose], g.index.ZoneID(originZoneRow), err)
	}

	v, _ := g.cache.LoadOrStore(key, Cumulative(probs))
	return v.([]float64), nil
}
