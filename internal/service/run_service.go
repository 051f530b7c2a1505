package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/internal/stats"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// Errors returned to handlers as client errors
var (
	ErrInvalidKind     = errors.New("invalid run kind")
	ErrAirportDisabled = errors.New("airport model is disabled")
)

// RunRequest selects what to simulate. Zero values fall back to the
// scheduler configuration.
type RunRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=visitor airport"`
	Concurrent  *bool  `json:"concurrent"`
	Parallelism int    `json:"parallelism" binding:"gte=0"`
}

// RunSummary describes the results of a completed run.
type RunSummary struct {
	Run *models.Run `json:"run"`

	Tours            int                    `json:"tours,omitempty"`
	Skipped          int                    `json:"skipped,omitempty"`
	DestinationZones []repository.ZoneCount `json:"destination_zones,omitempty"`
	TripModes        []repository.ModeCount `json:"trip_modes,omitempty"`
	TourDistanceKm   *stats.Summary         `json:"tour_distance_km,omitempty"`
	// ZoneEntropy is the normalized entropy of destinations over all zones
	ZoneEntropy float64 `json:"zone_entropy,omitempty"`

	Parties  []repository.AirportResult `json:"parties,omitempty"`
	Internal int                        `json:"internal,omitempty"`
}

// RunService launches batch runs and persists their results
type RunService struct {
	runs    *repository.RunRepository
	results *repository.ResultRepository
	ws      *simulation.Workspace
	cfg     *config.ModelConfig

	// background runs stop when ctx is cancelled
	ctx context.Context
	wg  sync.WaitGroup
}

// NewRunService creates a new run service
func NewRunService(ctx context.Context, runs *repository.RunRepository, results *repository.ResultRepository,
	ws *simulation.Workspace, cfg *config.ModelConfig) *RunService {
	return &RunService{
		runs:    runs,
		results: results,
		ws:      ws,
		cfg:     cfg,
		ctx:     ctx,
	}
}

// StartRun records a pending run and executes it in the background
func (s *RunService) StartRun(req RunRequest) (*models.Run, error) {
	j, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	run, err := s.runs.Create(req.Kind, int64(j.total()))
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.execute(s.ctx, run.ID, j); err != nil {
			logger.Error("run failed", "run", run.ID, "kind", run.Kind, "error", err)
		}
	}()

	return run, nil
}

// Execute runs a batch synchronously and returns the stored run
func (s *RunService) Execute(ctx context.Context, req RunRequest) (*models.Run, error) {
	j, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	run, err := s.runs.Create(req.Kind, int64(j.total()))
	if err != nil {
		return nil, err
	}
	runErr := s.execute(ctx, run.ID, j)

	stored, err := s.runs.GetByID(run.ID)
	if err != nil {
		return nil, err
	}
	return stored, runErr
}

// Wait blocks until background runs have finished
func (s *RunService) Wait() {
	s.wg.Wait()
}

// GetRun returns a run by id
func (s *RunService) GetRun(id string) (*models.Run, error) {
	return s.runs.GetByID(id)
}

// ListRuns returns recent runs
func (s *RunService) ListRuns(kind string, limit int) ([]*models.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.List(kind, limit)
}

type job struct {
	kind        string
	concurrent  bool
	parallelism int
	tours       []*models.Tour
	parties     []*models.AirportParty
}

func (j *job) total() int { return len(j.tours) + len(j.parties) }

func (s *RunService) prepare(req RunRequest) (*job, error) {
	j := &job{
		kind:        req.Kind,
		concurrent:  s.cfg.Scheduler.Concurrent,
		parallelism: s.cfg.Scheduler.Parallelism,
	}
	if req.Concurrent != nil {
		j.concurrent = *req.Concurrent
	}
	if req.Parallelism > 0 {
		j.parallelism = req.Parallelism
	}

	var err error
	switch req.Kind {
	case models.RunKindVisitor:
		j.tours, err = simulation.GenerateTours(s.cfg.Visitor, s.ws.Index)
	case models.RunKindAirport:
		if s.ws.AirportRunner == nil {
			return nil, ErrAirportDisabled
		}
		j.parties, err = simulation.GenerateParties(s.cfg.Airport)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s entities: %w", req.Kind, err)
	}
	return j, nil
}

func (s *RunService) execute(ctx context.Context, runID string, j *job) error {
	if err := s.runs.MarkRunning(runID); err != nil {
		return err
	}
	logger.Info("run started", "run", runID, "kind", j.kind, "entities", j.total(),
		"concurrent", j.concurrent, "parallelism", j.parallelism)

	err := s.simulate(ctx, runID, j)
	if err != nil {
		if markErr := s.runs.MarkFailed(runID, err.Error()); markErr != nil {
			logger.Error("failed to record run failure", "run", runID, "error", markErr)
		}
		return err
	}

	if err := s.runs.MarkCompleted(runID, int64(j.total()), 0); err != nil {
		return err
	}
	logger.Info("run completed", "run", runID, "kind", j.kind)
	return nil
}

func (s *RunService) simulate(ctx context.Context, runID string, j *job) error {
	var err error
	switch j.kind {
	case models.RunKindVisitor:
		err = s.ws.Visitor.RunBatch(ctx, j.tours, j.concurrent, j.parallelism)
	case models.RunKindAirport:
		err = s.ws.AirportRunner.RunBatch(ctx, j.parties, j.concurrent, j.parallelism)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, j.kind)
	}
	if err != nil {
		return err
	}

	// entities are simulated; results are not persisted yet
	if err := s.runs.UpdateProgress(runID, int64(j.total()), 0); err != nil {
		return err
	}

	if j.kind == models.RunKindAirport {
		return s.results.SaveAirportParties(runID, j.parties, s.ws.AirportRunner.Purposes())
	}
	return s.results.SaveTours(runID, j.tours, repository.Labels{
		TourPurposes: s.cfg.Visitor.Destination.Purposes,
		StopPurposes: s.cfg.Visitor.Stop.Purposes,
	})
}

// Summary aggregates the stored results of a run
func (s *RunService) Summary(id string) (*RunSummary, error) {
	run, err := s.runs.GetByID(id)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{Run: run}
	if run.Status != models.RunStatusCompleted {
		return summary, nil
	}

	switch run.Kind {
	case models.RunKindVisitor:
		err = s.visitorSummary(summary)
	case models.RunKindAirport:
		err = s.airportSummary(summary)
	}
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *RunService) visitorSummary(summary *RunSummary) error {
	tours, err := s.results.ListTourResults(summary.Run.ID)
	if err != nil {
		return err
	}
	if summary.DestinationZones, err = s.results.DestinationZoneCounts(summary.Run.ID); err != nil {
		return err
	}
	if summary.TripModes, err = s.results.TripModeCounts(summary.Run.ID); err != nil {
		return err
	}

	summary.Tours = len(tours)
	distances := make([]float64, 0, len(tours))
	for _, t := range tours {
		if t.Skipped {
			summary.Skipped++
			continue
		}
		o, ok1 := s.ws.Index.UnitRow(t.OriginUnit)
		d, ok2 := s.ws.Index.UnitRow(t.DestinationUnit)
		if ok1 && ok2 {
			distances = append(distances, s.ws.Index.UnitDistanceKm(o, d))
		}
	}
	if len(distances) > 0 {
		sum := stats.Summarize(distances)
		summary.TourDistanceKm = &sum
	}

	counts := make([]float64, s.ws.Index.NumZones())
	for _, c := range summary.DestinationZones {
		if zr, ok := s.ws.Index.ZoneRow(c.ZoneID); ok {
			counts[zr] += float64(c.Count)
		}
	}
	summary.ZoneEntropy = stats.NormalizedEntropy(counts)
	return nil
}

func (s *RunService) airportSummary(summary *RunSummary) error {
	parties, err := s.results.ListAirportResults(summary.Run.ID)
	if err != nil {
		return err
	}
	summary.Parties = parties
	for _, p := range parties {
		if p.OriginUnit == models.NoUnit || p.DestinationUnit == models.NoUnit {
			summary.Internal++
		}
	}
	return nil
}
