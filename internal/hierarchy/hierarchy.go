// Package hierarchy builds the unit-level cumulative distributions inside
// every (purpose, zone) pair.
//
// A Hierarchy is immutable once built. Workers read it concurrently without
// locking; nothing in it may be modified after Build returns.
package hierarchy

import (
	"math"

	"github.com/SANDAG/ABM-sub008/internal/metrics"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// DriftTolerance bounds how far the last cumulative value may sit from 1.0.
const DriftTolerance = 1e-6

// CumulativeDistribution covers the member units of one zone in index
// order. A degenerate distribution has all entries at zero.
type CumulativeDistribution struct {
	Units      []int     `json:"units"` // unit rows
	Cumulative []float64 `json:"cumulative"`
	Degenerate bool      `json:"degenerate"`
}

// Delta returns the probability mass of entry i.
func (d *CumulativeDistribution) Delta(i int) float64 {
	if i == 0 {
		return d.Cumulative[0]
	}
	return d.Cumulative[i] - d.Cumulative[i-1]
}

// Hierarchy is the set of distributions for all purposes and zones.
type Hierarchy struct {
	table *sizeterm.Table
	index *spatial.Index
	dists [][]CumulativeDistribution // [purpose][zone row]
	drift int
}

// Build derives every distribution from the size-term table. Drift beyond
// DriftTolerance is logged and counted; values are never renormalised.
func Build(table *sizeterm.Table, idx *spatial.Index) *Hierarchy {
	h := &Hierarchy{
		table: table,
		index: idx,
		dists: make([][]CumulativeDistribution, table.NumPurposes()),
	}

	for p := 0; p < table.NumPurposes(); p++ {
		h.dists[p] = make([]CumulativeDistribution, idx.NumZones())
		for zr := 0; zr < idx.NumZones(); zr++ {
			h.dists[p][zr] = h.buildZone(p, zr)
		}
	}

	if h.drift > 0 {
		logger.Warn("cumulative distributions outside tolerance", "count", h.drift)
	}
	return h
}

func (h *Hierarchy) buildZone(purpose, zoneRow int) CumulativeDistribution {
	rows := h.index.MemberRows(zoneRow)
	d := CumulativeDistribution{
		Units:      append([]int(nil), rows...),
		Cumulative: make([]float64, len(rows)),
	}

	total := h.table.ZoneTotal(purpose, zoneRow)
	if total <= 0 {
		d.Degenerate = true
		return d
	}

	var cum float64
	for i, r := range rows {
		cum += h.table.Weight(purpose, r) / total
		d.Cumulative[i] = cum
	}

	if last := d.Cumulative[len(rows)-1]; math.Abs(last-1.0) > DriftTolerance {
		h.drift++
		metrics.DriftWarnings.Inc()
		logger.Warn("cumulative drift",
			"purpose", h.table.Purposes()[purpose],
			"zone", h.index.ZoneID(zoneRow),
			"last", last)
	}
	return d
}

// Distribution returns the unit distribution of a zone row.
func (h *Hierarchy) Distribution(purpose, zoneRow int) *CumulativeDistribution {
	return &h.dists[purpose][zoneRow]
}

// Table returns the size terms the hierarchy was built from.
func (h *Hierarchy) Table() *sizeterm.Table { return h.table }

// Index returns the spatial index the hierarchy was built over.
func (h *Hierarchy) Index() *spatial.Index { return h.index }

// DriftCount reports how many distributions failed the drift check.
func (h *Hierarchy) DriftCount() int { return h.drift }
