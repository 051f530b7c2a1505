// Package destchoice assembles size terms, the probability hierarchy, the
// alternative sampler and the final choice engine into one location choice
// model.
package destchoice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SANDAG/ABM-sub008/internal/choice"
	"github.com/SANDAG/ABM-sub008/internal/hierarchy"
	"github.com/SANDAG/ABM-sub008/internal/sampler"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/pkg/logger"
)

// Config holds the choice settings of one model.
type Config struct {
	Name         string
	Purposes     []string
	SampleSize   int
	Scaling      sampler.ScalingMode
	SizeCoef     float64
	DistanceCoef []float64 // by purpose
	LogsumCoef   float64
}

// ZoneModelFunc creates the zone-level model once tables exist.
type ZoneModelFunc func(h *hierarchy.Hierarchy) (sampler.ZoneChoiceModel, error)

// Option customises a Model.
type Option func(*Model)

// WithZoneModel replaces the gravity zone model.
func WithZoneModel(f ZoneModelFunc) Option {
	return func(m *Model) { m.zoneModel = f }
}

// WithUtility replaces the reference destination utility.
func WithUtility(u choice.UtilityModel) Option {
	return func(m *Model) { m.utility = u }
}

// WithLogsums attaches mode-choice logsums to sampled alternatives.
func WithLogsums(l choice.LogsumProvider) Option {
	return func(m *Model) { m.logsums = l }
}

// Entity is the view of a tour or party the model needs.
type Entity struct {
	ID         int
	Stream     sampler.Uniform
	OriginUnit int // fallback for degenerate zones
	Debug      bool
}

// Outcome is a completed choice.
type Outcome struct {
	UnitID int
	ZoneID int
	Sample *sampler.Sample
	Result choice.Result
}

type state struct {
	hier    *hierarchy.Hierarchy
	sampler *sampler.Sampler
	engine  *choice.Engine
}

// Model is safe for concurrent use once BuildProbabilityTables returns.
type Model struct {
	cfg       Config
	index     *spatial.Index
	tables    *hierarchy.Tables
	zoneModel ZoneModelFunc
	utility   choice.UtilityModel
	logsums   choice.LogsumProvider

	mu sync.Mutex
	rt atomic.Pointer[state]
}

// New creates an unbuilt model.
func New(cfg Config, idx *spatial.Index, eval sizeterm.Evaluator, opts ...Option) (*Model, error) {
	if len(cfg.Purposes) == 0 {
		return nil, fmt.Errorf("model %s: no purposes", cfg.Name)
	}
	if cfg.SampleSize <= 0 {
		return nil, fmt.Errorf("model %s: sample size must be positive", cfg.Name)
	}
	if len(cfg.DistanceCoef) != len(cfg.Purposes) {
		return nil, fmt.Errorf("model %s: expected %d distance coefficients, got %d",
			cfg.Name, len(cfg.Purposes), len(cfg.DistanceCoef))
	}

	m := &Model{
		cfg:   cfg,
		index: idx,
		utility: &choice.DestinationUtility{
			SizeCoef:     cfg.SizeCoef,
			DistanceCoef: cfg.DistanceCoef,
			LogsumCoef:   cfg.LogsumCoef,
		},
	}
	m.zoneModel = func(h *hierarchy.Hierarchy) (sampler.ZoneChoiceModel, error) {
		return choice.NewGravityZoneModel(h.Table(), h.Index(), cfg.DistanceCoef)
	}
	m.tables = hierarchy.NewTables(func(ctx context.Context) (*hierarchy.Hierarchy, error) {
		tbl, err := sizeterm.Compute(ctx, cfg.Purposes, idx, eval)
		if err != nil {
			return nil, err
		}
		return hierarchy.Build(tbl, idx), nil
	})
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the configured model name.
func (m *Model) Name() string { return m.cfg.Name }

// SampleSize returns the configured K.
func (m *Model) SampleSize() int { return m.cfg.SampleSize }

// BuildProbabilityTables computes size terms and distributions once. Later
// calls are no-ops.
func (m *Model) BuildProbabilityTables(ctx context.Context) error {
	if m.rt.Load() != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rt.Load() != nil {
		return nil
	}

	h, err := m.tables.Build(ctx)
	if err != nil {
		return fmt.Errorf("model %s: failed to build probability tables: %w", m.cfg.Name, err)
	}
	zones, err := m.zoneModel(h)
	if err != nil {
		return fmt.Errorf("model %s: failed to create zone model: %w", m.cfg.Name, err)
	}

	m.rt.Store(&state{
		hier:    h,
		sampler: sampler.New(h, zones, m.cfg.Scaling),
		engine:  choice.NewEngine(m.index, m.utility, m.logsums),
	})
	logger.Info("probability tables built",
		"model", m.cfg.Name,
		"purposes", len(m.cfg.Purposes),
		"zones", m.index.NumZones(),
		"units", m.index.NumUnits(),
		"drift", h.DriftCount())
	return nil
}

func (m *Model) built() (*state, error) {
	rt := m.rt.Load()
	if rt == nil {
		return nil, hierarchy.ErrTablesNotBuilt
	}
	return rt, nil
}

// Hierarchy returns the built distributions.
func (m *Model) Hierarchy() (*hierarchy.Hierarchy, error) {
	rt, err := m.built()
	if err != nil {
		return nil, err
	}
	return rt.hier, nil
}

// PurposeIndex maps a purpose name to the index used by the other calls.
func (m *Model) PurposeIndex(name string) (int, error) {
	for i, p := range m.cfg.Purposes {
		if p == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", sizeterm.ErrUnknownPurpose, name)
}

// Choose samples K alternatives for the entity and picks one.
func (m *Model) Choose(ctx context.Context, e Entity, purpose, originZone, k int) (*Outcome, error) {
	rt, err := m.built()
	if err != nil {
		return nil, err
	}
	if purpose < 0 || purpose >= len(m.cfg.Purposes) {
		return nil, fmt.Errorf("%w: index %d", sizeterm.ErrUnknownPurpose, purpose)
	}
	zoneRow, ok := m.index.ZoneRow(originZone)
	if !ok {
		return nil, fmt.Errorf("%w: %d", spatial.ErrUnknownZone, originZone)
	}
	originRow, ok := m.index.UnitRow(e.OriginUnit)
	if !ok {
		return nil, fmt.Errorf("%w: %d", spatial.ErrUnknownUnit, e.OriginUnit)
	}

	s, err := rt.sampler.Sample(e.Stream, purpose, zoneRow, k, originRow)
	if err != nil {
		return nil, fmt.Errorf("entity %d: %w", e.ID, err)
	}
	if s.Fallbacks > 0 {
		logger.Error("sample used fallback unit",
			"model", m.cfg.Name, "entity", e.ID, "fallbacks", s.Fallbacks, "unit", e.OriginUnit)
	}

	res, err := rt.engine.Choose(e.Stream, choice.Request{
		EntityID:      e.ID,
		Purpose:       purpose,
		OriginUnitRow: originRow,
		Debug:         e.Debug,
	}, s)
	if err != nil {
		return nil, err
	}

	return &Outcome{UnitID: res.UnitID, ZoneID: res.ZoneID, Sample: s, Result: res}, nil
}

// SampleAndChoose returns only the chosen unit id.
func (m *Model) SampleAndChoose(ctx context.Context, e Entity, purpose, originZone, k int) (int, error) {
	out, err := m.Choose(ctx, e, purpose, originZone, k)
	if err != nil {
		return 0, err
	}
	return out.UnitID, nil
}

// DrawDirect picks a unit with a single draw through the zone and unit
// distributions, without sampling or a final choice.
func (m *Model) DrawDirect(ctx context.Context, e Entity, purpose, originZone int) (int, error) {
	rt, err := m.built()
	if err != nil {
		return 0, err
	}
	if purpose < 0 || purpose >= len(m.cfg.Purposes) {
		return 0, fmt.Errorf("%w: index %d", sizeterm.ErrUnknownPurpose, purpose)
	}
	zoneRow, ok := m.index.ZoneRow(originZone)
	if !ok {
		return 0, fmt.Errorf("%w: %d", spatial.ErrUnknownZone, originZone)
	}
	fallback, ok := m.index.UnitRow(e.OriginUnit)
	if !ok {
		return 0, fmt.Errorf("%w: %d", spatial.ErrUnknownUnit, e.OriginUnit)
	}

	s, err := rt.sampler.Sample(e.Stream, purpose, zoneRow, 1, fallback)
	if err != nil {
		return 0, fmt.Errorf("entity %d: %w", e.ID, err)
	}
	return s.Alternatives[0].UnitID, nil
}
