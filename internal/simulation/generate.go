package simulation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/SANDAG/ABM-sub008/internal/choice"
	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/random"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

// ErrNoOrigins is returned when no unit carries origin weight.
var ErrNoOrigins = errors.New("no unit has a positive origin weight")

// GenerateTours creates the configured tours. Tour ids start at 1; tour i
// is seeded with baseSeed + i*stride and draws its origin unit from its own
// stream, weighted by the origin attribute.
func GenerateTours(cfg config.VisitorConfig, idx *spatial.Index) ([]*models.Tour, error) {
	attr, ok := models.ParseAttribute(cfg.OriginAttribute)
	if !ok {
		return nil, fmt.Errorf("unknown origin attribute %q", cfg.OriginAttribute)
	}
	weights := make([]float64, idx.NumUnits())
	for r := range weights {
		weights[r] = idx.Unit(r).Attribute(attr)
	}
	cum, err := shares(weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOrigins, cfg.OriginAttribute)
	}

	var tours []*models.Tour
	for _, pc := range cfg.Tours {
		purpose := slices.Index(cfg.Destination.Purposes, pc.Purpose)
		if purpose < 0 {
			return nil, fmt.Errorf("tour purpose %q has no destination size terms", pc.Purpose)
		}
		for c := 0; c < pc.Count; c++ {
			i := len(tours)
			t := models.NewTour(i+1, random.SeedFor(cfg.BaseSeed, i, cfg.SeedStride))
			t.Purpose = purpose
			t.OriginUnit = idx.Unit(choice.CategoricalDraw(cum, t.Random())).ID
			tours = append(tours, t)
		}
	}
	return tours, nil
}

// GenerateParties creates the configured airport parties. Party ids start
// at 1 and seeds follow the airport base seed and stride.
func GenerateParties(cfg config.AirportConfig) ([]*models.AirportParty, error) {
	purposes := airportPurposes(cfg)

	var parties []*models.AirportParty
	for _, pc := range cfg.Parties {
		purpose := slices.Index(purposes, pc.Purpose)
		if purpose < 0 {
			return nil, fmt.Errorf("airport purpose %q is neither located nor internal", pc.Purpose)
		}
		for c := 0; c < pc.Count; c++ {
			i := len(parties)
			p := models.NewAirportParty(i+1, random.SeedFor(cfg.BaseSeed, i, cfg.SeedStride))
			p.Purpose = purpose
			p.Direction = models.Arriving
			if p.Random() < cfg.DepartingShare {
				p.Direction = models.Departing
			}
			parties = append(parties, p)
		}
	}
	return parties, nil
}
