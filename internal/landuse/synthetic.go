// Package landuse generates synthetic land-use inputs for development
// databases.
package landuse

import (
	"math"
	"strings"

	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/random"
)

// Region center and zone spacing of the synthetic grid.
const (
	CenterLat   = 32.7157
	CenterLon   = -117.1611
	ZoneSpacing = 0.02 // degrees
)

// Synthetic lays zones on a square grid around the region center with
// perZone units each. Unit ids are zone*1000 + i. Roughly one unit in
// twenty carries no land use at all.
func Synthetic(zones, perZone int, seed uint64) []models.SpatialUnit {
	rng := random.New(seed)
	side := int(math.Ceil(math.Sqrt(float64(zones))))

	units := make([]models.SpatialUnit, 0, zones*perZone)
	for z := 1; z <= zones; z++ {
		row, col := (z-1)/side, (z-1)%side
		lat := CenterLat + (float64(row)-float64(side)/2)*ZoneSpacing
		lon := CenterLon + (float64(col)-float64(side)/2)*ZoneSpacing

		// zones near the center are denser
		density := 1 / (1 + math.Hypot(float64(row)-float64(side)/2, float64(col)-float64(side)/2)/2)

		for i := 0; i < perZone; i++ {
			u := models.SpatialUnit{
				ID:     z*1000 + i,
				ZoneID: z,
				Lat:    lat + (rng.Float64()-0.5)*ZoneSpacing,
				Lon:    lon + (rng.Float64()-0.5)*ZoneSpacing,
			}
			if rng.Float64() < 0.05 {
				units = append(units, u)
				continue
			}

			pop := math.Round(rng.Float64() * 800 * density)
			u.LandUse[models.AttrPopulation] = pop
			u.LandUse[models.AttrHouseholds] = math.Round(pop / 2.6)
			emp := math.Round(rng.Float64() * 600 * density)
			u.LandUse[models.AttrEmployment] = emp
			u.LandUse[models.AttrRetailEmployment] = math.Round(emp * 0.3 * rng.Float64())
			u.LandUse[models.AttrServiceEmployment] = math.Round(emp * 0.4 * rng.Float64())
			if rng.Float64() < 0.3 {
				u.LandUse[models.AttrHotelRooms] = math.Round(50 + rng.Float64()*400*density)
			}
			if rng.Float64() < 0.1 {
				u.LandUse[models.AttrEnrollment] = math.Round(rng.Float64() * 1500)
			}
			if rng.Float64() < 0.2 {
				u.LandUse[models.AttrParkAcres] = math.Round(rng.Float64()*40*100) / 100
			}
			units = append(units, u)
		}
	}
	return units
}

// DefaultCoefficients returns placeholder size coefficients for purposes,
// chosen by name. Unrecognized purposes are sized by population.
func DefaultCoefficients(purposes []string) []models.SizeCoefficient {
	var out []models.SizeCoefficient
	add := func(p string, a models.Attribute, c float64) {
		out = append(out, models.SizeCoefficient{Purpose: p, Attribute: a, Coefficient: c})
	}

	for _, p := range purposes {
		switch name := strings.ToLower(p); {
		case strings.Contains(name, "business"), name == "work":
			add(p, models.AttrEmployment, 1)
			add(p, models.AttrHotelRooms, 0.2)
		case strings.HasPrefix(name, "resident"):
			add(p, models.AttrHouseholds, 1)
		case strings.HasPrefix(name, "visitor"):
			add(p, models.AttrHotelRooms, 1)
			add(p, models.AttrPopulation, 0.05)
		case name == "dining":
			add(p, models.AttrRetailEmployment, 1)
			add(p, models.AttrServiceEmployment, 0.3)
		case name == "shopping":
			add(p, models.AttrRetailEmployment, 1)
		case name == "recreation":
			add(p, models.AttrParkAcres, 2)
			add(p, models.AttrHotelRooms, 0.2)
			add(p, models.AttrRetailEmployment, 0.3)
		default:
			add(p, models.AttrPopulation, 1)
		}
	}
	return out
}
