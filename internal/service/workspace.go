package service

import (
	"errors"
	"fmt"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// ErrNoUnits is returned when the land-use table is empty.
var ErrNoUnits = errors.New("no land-use units loaded")

// LoadWorkspace reads units and size coefficients and creates the models.
func LoadWorkspace(units *repository.UnitRepository, cfg *config.ModelConfig) (*simulation.Workspace, error) {
	rows, err := units.ListUnits()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoUnits
	}
	idx, err := spatial.NewIndex(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to index units: %w", err)
	}

	coefs := simulation.Coefficients{}
	names := []string{simulation.ModelDestination, simulation.ModelStop}
	if cfg.Airport.Enabled {
		names = append(names, simulation.ModelAirport)
	}
	for _, name := range names {
		if coefs[name], err = units.ListSizeCoefficients(name); err != nil {
			return nil, err
		}
	}

	ws, err := simulation.NewWorkspace(cfg, idx, coefs)
	if err != nil {
		return nil, err
	}
	logger.Info("workspace loaded", "zones", idx.NumZones(), "units", idx.NumUnits(), "airport", cfg.Airport.Enabled)
	return ws, nil
}
