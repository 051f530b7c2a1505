package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/destchoice"
	"github.com/SANDAG/ABM-sub008/internal/metrics"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/scheduler"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// AirportRunner places airport parties with one draw through the zone and
// unit distributions of their purpose.
type AirportRunner struct {
	cfg         config.AirportConfig
	sched       config.SchedulerConfig
	model       *destchoice.Model
	airportZone int
	located     int
}

// NewAirportRunner checks that the airport unit exists in idx.
func NewAirportRunner(cfg config.AirportConfig, sched config.SchedulerConfig, idx *spatial.Index, model *destchoice.Model) (*AirportRunner, error) {
	zone, err := idx.ZoneOf(cfg.AirportUnit)
	if err != nil {
		return nil, fmt.Errorf("airport unit: %w", err)
	}
	return &AirportRunner{
		cfg:         cfg,
		sched:       sched,
		model:       model,
		airportZone: zone,
		located:     len(cfg.Destination.Purposes),
	}, nil
}

// Purposes lists party purposes: located purposes first, then internal
// ones. Party.Purpose indexes this list.
func (a *AirportRunner) Purposes() []string {
	return airportPurposes(a.cfg)
}

func airportPurposes(cfg config.AirportConfig) []string {
	out := make([]string, 0, len(cfg.Destination.Purposes)+len(cfg.InternalPurposes))
	out = append(out, cfg.Destination.Purposes...)
	return append(out, cfg.InternalPurposes...)
}

// RunBatch locates every party in place.
func (a *AirportRunner) RunBatch(ctx context.Context, parties []*models.AirportParty, concurrent bool, parallelism int) error {
	if err := a.model.BuildProbabilityTables(ctx); err != nil {
		return err
	}
	policy, err := scheduler.ParsePolicy(a.sched.Policy)
	if err != nil {
		return err
	}
	s := scheduler.New(scheduler.Options{
		Name:        "airport",
		Concurrent:  concurrent,
		Parallelism: parallelism,
		Threshold:   a.sched.Threshold,
		Policy:      policy,
	})

	start := time.Now()
	err = s.ForEach(ctx, len(parties), func(ctx context.Context, i int) error {
		return a.locate(ctx, parties[i])
	})
	metrics.BatchDuration.WithLabelValues("airport").Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("airport batch failed", "processed", s.Processed(), "total", len(parties), "error", err)
		return err
	}
	logger.Info("airport batch completed", "parties", len(parties), "duration", time.Since(start).String())
	return nil
}

func (a *AirportRunner) locate(ctx context.Context, p *models.AirportParty) error {
	// internal purposes stay at the airport
	unit := models.NoUnit
	if p.Purpose < a.located {
		var err error
		unit, err = a.model.DrawDirect(ctx, destchoice.Entity{
			ID:         p.ID,
			Stream:     p.Stream(),
			OriginUnit: a.cfg.AirportUnit,
		}, p.Purpose, a.airportZone)
		if err != nil {
			metrics.EntitiesProcessed.WithLabelValues("airport", "failed").Inc()
			return fmt.Errorf("party %d: %w", p.ID, err)
		}
	}

	if p.Direction == models.Departing {
		p.OriginUnit, p.DestinationUnit = unit, a.cfg.AirportUnit
	} else {
		p.OriginUnit, p.DestinationUnit = a.cfg.AirportUnit, unit
	}
	metrics.EntitiesProcessed.WithLabelValues("airport", "ok").Inc()
	return nil
}
