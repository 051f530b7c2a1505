package spatial

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SANDAG/ABM-sub008/internal/models"
)

var (
	ErrUnknownZone = errors.New("unknown zone")
	ErrUnknownUnit = errors.New("unknown unit")
)

// Index is the read-only arena of zones and units shared by every entity.
// Zones are stored in ascending id order; units keep load order, and a
// zone's members keep the order in which they were loaded.
type Index struct {
	units     []models.SpatialUnit
	unitRow   map[int]int
	zoneIDs   []int
	zoneRow   map[int]int
	members   [][]int // unit rows per zone row
	zoneOf    []int   // zone row per unit row
	centroids []Point
}

// NewIndex builds the arena from loaded units.
func NewIndex(units []models.SpatialUnit) (*Index, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("failed to build spatial index: no units")
	}

	idx := &Index{
		units:   make([]models.SpatialUnit, len(units)),
		unitRow: make(map[int]int, len(units)),
		zoneRow: make(map[int]int),
		zoneOf:  make([]int, len(units)),
	}
	copy(idx.units, units)

	seen := make(map[int]bool)
	for i, u := range idx.units {
		if _, dup := idx.unitRow[u.ID]; dup {
			return nil, fmt.Errorf("failed to build spatial index: duplicate unit %d", u.ID)
		}
		idx.unitRow[u.ID] = i
		if !seen[u.ZoneID] {
			seen[u.ZoneID] = true
			idx.zoneIDs = append(idx.zoneIDs, u.ZoneID)
		}
	}
	sort.Ints(idx.zoneIDs)
	for row, id := range idx.zoneIDs {
		idx.zoneRow[id] = row
	}

	idx.members = make([][]int, len(idx.zoneIDs))
	for i, u := range idx.units {
		zr := idx.zoneRow[u.ZoneID]
		idx.members[zr] = append(idx.members[zr], i)
		idx.zoneOf[i] = zr
	}

	idx.centroids = make([]Point, len(idx.zoneIDs))
	for zr, rows := range idx.members {
		pts := make([]Point, len(rows))
		for j, r := range rows {
			pts[j] = Point{Lat: idx.units[r].Lat, Lon: idx.units[r].Lon}
		}
		idx.centroids[zr] = Centroid(pts)
	}

	return idx, nil
}

// NumZones returns the number of zones.
func (idx *Index) NumZones() int { return len(idx.zoneIDs) }

// NumUnits returns the number of units.
func (idx *Index) NumUnits() int { return len(idx.units) }

// ZoneID returns the id of the zone stored at row.
func (idx *Index) ZoneID(row int) int { return idx.zoneIDs[row] }

// ZoneRow maps a zone id to its row.
func (idx *Index) ZoneRow(zoneID int) (int, bool) {
	r, ok := idx.zoneRow[zoneID]
	return r, ok
}

// UnitRow maps a unit id to its row.
func (idx *Index) UnitRow(unitID int) (int, bool) {
	r, ok := idx.unitRow[unitID]
	return r, ok
}

// Unit returns the unit stored at row.
func (idx *Index) Unit(row int) models.SpatialUnit { return idx.units[row] }

// MemberRows returns the unit rows of a zone row. The slice is shared and
// must not be modified.
func (idx *Index) MemberRows(zoneRow int) []int { return idx.members[zoneRow] }

// ZoneRowOfUnit returns the zone row containing unit row.
func (idx *Index) ZoneRowOfUnit(unitRow int) int { return idx.zoneOf[unitRow] }

// UnitsInZone returns the member unit ids of a zone in load order.
func (idx *Index) UnitsInZone(zoneID int) ([]int, error) {
	zr, ok := idx.zoneRow[zoneID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownZone, zoneID)
	}
	ids := make([]int, len(idx.members[zr]))
	for i, r := range idx.members[zr] {
		ids[i] = idx.units[r].ID
	}
	return ids, nil
}

// ZoneOf returns the zone id containing a unit.
func (idx *Index) ZoneOf(unitID int) (int, error) {
	r, ok := idx.unitRow[unitID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownUnit, unitID)
	}
	return idx.units[r].ZoneID, nil
}

// ZoneCentroid returns the unweighted centroid of a zone row.
func (idx *Index) ZoneCentroid(zoneRow int) Point { return idx.centroids[zoneRow] }

// ZoneDistanceKm is the centroid-to-centroid distance between two zone rows.
func (idx *Index) ZoneDistanceKm(a, b int) float64 {
	return DistanceKm(idx.centroids[a], idx.centroids[b])
}

// UnitDistanceKm is the distance between two unit rows.
func (idx *Index) UnitDistanceKm(a, b int) float64 {
	ua, ub := idx.units[a], idx.units[b]
	return DistanceKm(Point{Lat: ua.Lat, Lon: ua.Lon}, Point{Lat: ub.Lat, Lon: ub.Lon})
}

// ZoneGeohashPrecision gives cells of roughly 150m.
const ZoneGeohashPrecision = 7

// ZoneSummary describes the geometry of one zone.
type ZoneSummary struct {
	ZoneID           int     `json:"zone_id"`
	Units            int     `json:"units"`
	Geohash          string  `json:"geohash"`
	Centroid         Point   `json:"centroid"`
	PopulationCenter Point   `json:"population_center"`
	RadiusMeters     float64 `json:"radius_meters"`
	MinLat           float64 `json:"min_lat"`
	MinLon           float64 `json:"min_lon"`
	MaxLat           float64 `json:"max_lat"`
	MaxLon           float64 `json:"max_lon"`
}

// Summarize returns the geometry summary of a zone.
func (idx *Index) Summarize(zoneID int) (*ZoneSummary, error) {
	zr, ok := idx.zoneRow[zoneID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownZone, zoneID)
	}

	rows := idx.members[zr]
	pts := make([]Point, len(rows))
	pop := make([]float64, len(rows))
	for i, r := range rows {
		u := idx.units[r]
		pts[i] = Point{Lat: u.Lat, Lon: u.Lon}
		pop[i] = u.Attribute(models.AttrPopulation)
	}

	minLat, minLon, maxLat, maxLon := BoundingBox(pts)
	return &ZoneSummary{
		ZoneID:           zoneID,
		Units:            len(rows),
		Geohash:          Geohash(idx.centroids[zr], ZoneGeohashPrecision),
		Centroid:         idx.centroids[zr],
		PopulationCenter: WeightedCentroid(pts, pop),
		RadiusMeters:     RadiusOfGyration(pts),
		MinLat:           minLat,
		MinLon:           minLon,
		MaxLat:           maxLat,
		MaxLon:           maxLon,
	}, nil
}
