package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/database"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/repository"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

type fixture struct {
	cfg     *config.ModelConfig
	ws      *simulation.Workspace
	runs    *repository.RunRepository
	results *repository.ResultRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "svc.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	var units []models.SpatialUnit
	for z := 1; z <= 4; z++ {
		for i := 0; i < 3; i++ {
			u := models.SpatialUnit{ID: 10*z + i, ZoneID: z, Lat: 32.7 + 0.02*float64(z), Lon: -117.1 - 0.01*float64(i)}
			u.LandUse[models.AttrEmployment] = float64(z + i)
			u.LandUse[models.AttrHotelRooms] = float64(i * 5)
			units = append(units, u)
		}
	}
	unitRepo := repository.NewUnitRepository(db)
	if err := unitRepo.InsertUnits(units); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultModelConfig()
	cfg.Visitor.Tours = []config.PurposeCount{{Purpose: "work", Count: 25}, {Purpose: "dining", Count: 15}}
	cfg.Airport.Enabled = true
	cfg.Airport.AirportUnit = 10
	cfg.Airport.Parties = []config.PurposeCount{{Purpose: "resident_business", Count: 12}, {Purpose: "employee", Count: 3}}

	for model, purposes := range map[string][]string{
		simulation.ModelDestination: cfg.Visitor.Destination.Purposes,
		simulation.ModelStop:        cfg.Visitor.Stop.Purposes,
		simulation.ModelAirport:     cfg.Airport.Destination.Purposes,
	} {
		var coefs []models.SizeCoefficient
		for _, p := range purposes {
			coefs = append(coefs, models.SizeCoefficient{Purpose: p, Attribute: models.AttrEmployment, Coefficient: 1})
		}
		if err := unitRepo.UpsertCoefficients(model, coefs); err != nil {
			t.Fatal(err)
		}
	}

	ws, err := LoadWorkspace(unitRepo, cfg)
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	return &fixture{
		cfg:     cfg,
		ws:      ws,
		runs:    repository.NewRunRepository(db),
		results: repository.NewResultRepository(db),
	}
}

func (f *fixture) service(ctx context.Context) *RunService {
	return NewRunService(ctx, f.runs, f.results, f.ws, f.cfg)
}

func TestExecuteVisitorRun(t *testing.T) {
	f := newFixture(t)
	svc := f.service(context.Background())

	run, err := svc.Execute(context.Background(), RunRequest{Kind: models.RunKindVisitor})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Status != models.RunStatusCompleted || run.Total != 40 || run.Processed != 40 {
		t.Fatalf("unexpected run: %+v", run)
	}

	summary, err := svc.Summary(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Tours != 40 || summary.Skipped != 0 {
		t.Errorf("tours=%d skipped=%d", summary.Tours, summary.Skipped)
	}
	total := 0
	for _, c := range summary.DestinationZones {
		total += c.Count
	}
	if total != 40 {
		t.Errorf("destination counts sum to %d", total)
	}
	if summary.TourDistanceKm == nil || summary.TourDistanceKm.Count != 40 {
		t.Errorf("distance summary = %+v", summary.TourDistanceKm)
	}
	if summary.ZoneEntropy <= 0 || summary.ZoneEntropy > 1 {
		t.Errorf("zone entropy = %v", summary.ZoneEntropy)
	}
	if len(summary.TripModes) == 0 {
		t.Error("no trip modes stored")
	}
}

func TestStartAirportRun(t *testing.T) {
	f := newFixture(t)
	svc := f.service(context.Background())

	run, err := svc.StartRun(RunRequest{Kind: models.RunKindAirport})
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusPending {
		t.Errorf("new run status %s", run.Status)
	}
	svc.Wait()

	summary, err := svc.Summary(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Run.Status != models.RunStatusCompleted {
		t.Fatalf("run status %s: %s", summary.Run.Status, summary.Run.Error)
	}
	if len(summary.Parties) != 15 || summary.Internal != 3 {
		t.Errorf("parties=%d internal=%d", len(summary.Parties), summary.Internal)
	}
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service(context.Background()).StartRun(RunRequest{Kind: "cruise"}); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := f.service(ctx)
	run, err := svc.StartRun(RunRequest{Kind: models.RunKindVisitor})
	if err != nil {
		t.Fatal(err)
	}
	svc.Wait()
	got, err := svc.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RunStatusFailed || got.Error == "" {
		t.Errorf("cancelled run = %+v", got)
	}

	if _, err := svc.Summary("nope"); !errors.Is(err, repository.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestZoneDistribution(t *testing.T) {
	f := newFixture(t)
	svc := NewDistributionService(f.ws)
	ctx := context.Background()

	d, err := svc.ZoneDistribution(ctx, simulation.ModelDestination, "work", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Units) != 3 || d.Degenerate {
		t.Fatalf("unexpected distribution: %+v", d)
	}
	var sum float64
	for _, u := range d.Units {
		sum += u.Probability
	}
	if math.Abs(sum-1) > 1e-9 || math.Abs(d.Units[2].Cumulative-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
	// employment 3, 4, 5
	if math.Abs(d.Units[0].Probability-0.25) > 1e-12 || d.Total != 12 {
		t.Errorf("unexpected probabilities: %+v", d)
	}

	if _, err := svc.ZoneDistribution(ctx, "transit", "work", 3); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
	if _, err := svc.ZoneDistribution(ctx, simulation.ModelDestination, "golf", 3); !errors.Is(err, sizeterm.ErrUnknownPurpose) {
		t.Errorf("expected ErrUnknownPurpose, got %v", err)
	}
	if _, err := svc.ZoneDistribution(ctx, simulation.ModelStop, "work", 99); !errors.Is(err, spatial.ErrUnknownZone) {
		t.Errorf("expected ErrUnknownZone, got %v", err)
	}

	zone, err := svc.Zone(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(zone.UnitIDs) != 3 || zone.UnitIDs[0] != 20 || zone.Units != 3 {
		t.Errorf("unexpected zone: %+v", zone)
	}
}
