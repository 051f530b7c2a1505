// Package simulation runs visitor tours and airport parties through the
// location and mode choice models.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/SANDAG/ABM-sub008/internal/choice"
	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/destchoice"
	"github.com/SANDAG/ABM-sub008/internal/metrics"
	"github.com/SANDAG/ABM-sub008/internal/mode"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/scheduler"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// Runner simulates visitor tours. It holds no per-tour state and may run
// several batches concurrently.
type Runner struct {
	cfg   config.VisitorConfig
	sched config.SchedulerConfig
	index *spatial.Index

	dest  *destchoice.Model
	stop  *destchoice.Model
	modes *mode.Model

	stopCountCum   []float64
	stopPurposeCum []float64
}

// NewRunner wires the tour pipeline.
func NewRunner(cfg config.VisitorConfig, sched config.SchedulerConfig, idx *spatial.Index,
	dest, stop *destchoice.Model, modes *mode.Model) (*Runner, error) {
	countCum, err := shares(cfg.StopCountShares)
	if err != nil {
		return nil, fmt.Errorf("stop count shares: %w", err)
	}
	purposeCum, err := shares(cfg.StopPurposeShares)
	if err != nil {
		return nil, fmt.Errorf("stop purpose shares: %w", err)
	}
	return &Runner{
		cfg:            cfg,
		sched:          sched,
		index:          idx,
		dest:           dest,
		stop:           stop,
		modes:          modes,
		stopCountCum:   countCum,
		stopPurposeCum: purposeCum,
	}, nil
}

// shares normalizes non-negative weights into a cumulative distribution.
func shares(w []float64) ([]float64, error) {
	if len(w) == 0 {
		return nil, errors.New("no shares")
	}
	if floats.Min(w) < 0 {
		return nil, errors.New("negative share")
	}
	cum := floats.CumSum(make([]float64, len(w)), w)
	total := cum[len(cum)-1]
	if total <= 0 {
		return nil, errors.New("shares sum to zero")
	}
	floats.Scale(1/total, cum)
	return cum, nil
}

// BuildProbabilityTables prepares both location choice models.
func (r *Runner) BuildProbabilityTables(ctx context.Context) error {
	if err := r.dest.BuildProbabilityTables(ctx); err != nil {
		return err
	}
	return r.stop.BuildProbabilityTables(ctx)
}

// RunBatch simulates every tour in place. Tours are independent, so the
// results do not depend on concurrent or parallelism. The first fatal
// error stops the batch and is returned.
func (r *Runner) RunBatch(ctx context.Context, tours []*models.Tour, concurrent bool, parallelism int) error {
	if err := r.BuildProbabilityTables(ctx); err != nil {
		return err
	}

	policy, err := scheduler.ParsePolicy(r.sched.Policy)
	if err != nil {
		return err
	}
	s := scheduler.New(scheduler.Options{
		Name:        "visitor",
		Concurrent:  concurrent,
		Parallelism: parallelism,
		Threshold:   r.sched.Threshold,
		Policy:      policy,
	})

	start := time.Now()
	err = s.ForEach(ctx, len(tours), func(ctx context.Context, i int) error {
		return r.simulateTour(ctx, tours[i])
	})
	metrics.BatchDuration.WithLabelValues("visitor").Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error("visitor batch failed", "processed", s.Processed(), "total", len(tours), "error", err)
		return err
	}
	logger.Info("visitor batch completed",
		"tours", len(tours),
		"leaves", s.Leaves(),
		"duration", time.Since(start).String())
	return nil
}

func (r *Runner) simulateTour(ctx context.Context, t *models.Tour) error {
	if r.cfg.TraceTour > 0 && t.ID == r.cfg.TraceTour {
		t.Debug = true
	}
	if r.cfg.Seek && !t.Debug {
		t.Skipped = true
		metrics.EntitiesProcessed.WithLabelValues("visitor", "skipped").Inc()
		return nil
	}
	if t.Random() > r.cfg.SampleRate {
		t.Skipped = true
		metrics.EntitiesProcessed.WithLabelValues("visitor", "skipped").Inc()
		return nil
	}

	if err := r.locateTour(ctx, t); err != nil {
		metrics.EntitiesProcessed.WithLabelValues("visitor", "failed").Inc()
		return fmt.Errorf("tour %d: %w", t.ID, err)
	}
	metrics.EntitiesProcessed.WithLabelValues("visitor", "ok").Inc()
	return nil
}

func (r *Runner) locateTour(ctx context.Context, t *models.Tour) error {
	originZone, err := r.index.ZoneOf(t.OriginUnit)
	if err != nil {
		return err
	}

	dest, err := r.dest.SampleAndChoose(ctx, destchoice.Entity{
		ID:         t.ID,
		Stream:     t.Stream(),
		OriginUnit: t.OriginUnit,
		Debug:      t.Debug,
	}, t.Purpose, originZone, r.dest.SampleSize())
	if err != nil {
		return fmt.Errorf("destination choice: %w", err)
	}
	t.DestinationUnit = dest

	tourMode, err := r.chooseMode(t, t.OriginUnit, t.DestinationUnit)
	if err != nil {
		return fmt.Errorf("tour mode: %w", err)
	}
	t.TourMode = int(tourMode)

	if t.OutboundStops, err = r.locateStops(ctx, t, false, t.OriginUnit); err != nil {
		return err
	}
	if t.InboundStops, err = r.locateStops(ctx, t, true, t.DestinationUnit); err != nil {
		return err
	}

	return r.chooseTripModes(t, tourMode)
}

// locateStops draws the stop count and purposes of one half tour and places
// each stop relative to the previous location.
func (r *Runner) locateStops(ctx context.Context, t *models.Tour, inbound bool, from int) ([]models.Stop, error) {
	n := choice.CategoricalDraw(r.stopCountCum, t.Random())
	if n == 0 {
		return nil, nil
	}

	stops := make([]models.Stop, 0, n)
	prev := from
	for i := 0; i < n; i++ {
		purpose := choice.CategoricalDraw(r.stopPurposeCum, t.Random())
		prevZone, err := r.index.ZoneOf(prev)
		if err != nil {
			return nil, err
		}
		unit, err := r.stop.SampleAndChoose(ctx, destchoice.Entity{
			ID:         t.ID,
			Stream:     t.Stream(),
			OriginUnit: prev,
			Debug:      t.Debug,
		}, purpose, prevZone, r.stop.SampleSize())
		if err != nil {
			return nil, fmt.Errorf("stop %d location: %w", i, err)
		}
		stops = append(stops, models.Stop{ID: i, Inbound: inbound, Purpose: purpose, Unit: unit})
		prev = unit
	}
	return stops, nil
}

// chooseTripModes builds the trips of a located tour. Trips of drive tours
// stay in the car; other tours choose a mode per trip.
func (r *Runner) chooseTripModes(t *models.Tour, tourMode mode.Mode) error {
	var legs []models.Trip
	add := func(stops []models.Stop, from, to int, inbound bool) {
		prev := from
		for _, s := range stops {
			legs = append(legs, models.Trip{OriginUnit: prev, DestinationUnit: s.Unit, Inbound: inbound})
			prev = s.Unit
		}
		legs = append(legs, models.Trip{OriginUnit: prev, DestinationUnit: to, Inbound: inbound})
	}
	add(t.OutboundStops, t.OriginUnit, t.DestinationUnit, false)
	add(t.InboundStops, t.DestinationUnit, t.OriginUnit, true)

	for i := range legs {
		if tourMode == mode.Drive {
			legs[i].Mode = int(mode.Drive)
			continue
		}
		m, err := r.chooseMode(t, legs[i].OriginUnit, legs[i].DestinationUnit)
		if err != nil {
			return fmt.Errorf("trip %d mode: %w", i, err)
		}
		legs[i].Mode = int(m)
	}
	t.Trips = legs
	return nil
}

func (r *Runner) chooseMode(t *models.Tour, from, to int) (mode.Mode, error) {
	o, ok := r.index.UnitRow(from)
	if !ok {
		return 0, fmt.Errorf("%w: %d", spatial.ErrUnknownUnit, from)
	}
	d, ok := r.index.UnitRow(to)
	if !ok {
		return 0, fmt.Errorf("%w: %d", spatial.ErrUnknownUnit, to)
	}
	m, err := r.modes.Choose(t.Stream(), o, d)
	if err != nil {
		return 0, err
	}
	if t.Debug {
		logger.Info("mode choice", "tour", t.ID, "from", from, "to", to, "mode", m.String())
	}
	return m, nil
}
