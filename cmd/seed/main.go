// Command seed fills a development database with synthetic land use and
// placeholder size coefficients for every configured purpose.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/database"
	"github.com/SANDAG/ABM-sub008/internal/landuse"
	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

func main() {
	zones := flag.Int("zones", 400, "number of zones")
	perZone := flag.Int("units", 12, "units per zone")
	seed := flag.Uint64("seed", 20240101, "generator seed")
	force := flag.Bool("force", false, "seed even when units already exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env)

	db, err := database.Open(database.Config{Path: cfg.DBPath, MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	units := repository.NewUnitRepository(db)
	if n, err := units.CountUnits(); err != nil {
		logger.Fatal("failed to count units", "error", err)
	} else if n > 0 && !*force {
		logger.Info("database already seeded", "units", n)
		return
	}

	if err := units.InsertUnits(landuse.Synthetic(*zones, *perZone, *seed)); err != nil {
		logger.Fatal("failed to insert units", "error", err)
	}

	sets := map[string][]string{
		simulation.ModelDestination: cfg.Model.Visitor.Destination.Purposes,
		simulation.ModelStop:        cfg.Model.Visitor.Stop.Purposes,
		simulation.ModelAirport:     cfg.Model.Airport.Destination.Purposes,
	}
	for model, purposes := range sets {
		if err := units.UpsertCoefficients(model, landuse.DefaultCoefficients(purposes)); err != nil {
			logger.Fatal("failed to store coefficients", "model", model, "error", err)
		}
	}

	logger.Info("database seeded", "path", cfg.DBPath, "zones", *zones, "units", (*zones)*(*perZone))
}
