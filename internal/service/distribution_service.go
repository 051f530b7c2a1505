package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/SANDAG/ABM-sub008/internal/destchoice"
	"github.com/SANDAG/ABM-sub008/internal/simulation"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
	"github.com/SANDAG/ABM-sub008/internal/stats"
)

// ErrUnknownModel is returned for a model name outside the workspace.
var ErrUnknownModel = errors.New("unknown choice model")

// UnitProbability is one member unit of a zone distribution
type UnitProbability struct {
	UnitID      int     `json:"unit_id"`
	SizeTerm    float64 `json:"size_term"`
	Probability float64 `json:"probability"`
	Cumulative  float64 `json:"cumulative"`
}

// ZoneDistribution is the within-zone distribution of one purpose
type ZoneDistribution struct {
	Model      string            `json:"model"`
	Purpose    string            `json:"purpose"`
	ZoneID     int               `json:"zone_id"`
	Total      float64           `json:"total"`
	Aggregate  float64           `json:"aggregate"`
	Degenerate bool              `json:"degenerate"`
	Entropy    float64           `json:"entropy"`
	Units      []UnitProbability `json:"units"`
}

// ZoneInfo is the geometry and membership of a zone
type ZoneInfo struct {
	*spatial.ZoneSummary
	UnitIDs []int `json:"unit_ids"`
}

// DistributionService exposes the built probability tables
type DistributionService struct {
	ws *simulation.Workspace
}

// NewDistributionService creates a new distribution service
func NewDistributionService(ws *simulation.Workspace) *DistributionService {
	return &DistributionService{ws: ws}
}

func (s *DistributionService) model(name string) (*destchoice.Model, error) {
	switch name {
	case simulation.ModelDestination:
		return s.ws.Destination, nil
	case simulation.ModelStop:
		return s.ws.Stop, nil
	case simulation.ModelAirport:
		if s.ws.Airport != nil {
			return s.ws.Airport, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// ZoneDistribution returns the unit probabilities of a zone for a purpose.
// Tables are built on first request.
func (s *DistributionService) ZoneDistribution(ctx context.Context, modelName, purpose string, zoneID int) (*ZoneDistribution, error) {
	m, err := s.model(modelName)
	if err != nil {
		return nil, err
	}
	p, err := m.PurposeIndex(purpose)
	if err != nil {
		return nil, err
	}
	zr, ok := s.ws.Index.ZoneRow(zoneID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", spatial.ErrUnknownZone, zoneID)
	}
	if err := m.BuildProbabilityTables(ctx); err != nil {
		return nil, err
	}
	h, err := m.Hierarchy()
	if err != nil {
		return nil, err
	}

	dist := h.Distribution(p, zr)
	out := &ZoneDistribution{
		Model:      modelName,
		Purpose:    purpose,
		ZoneID:     zoneID,
		Total:      h.Table().ZoneTotal(p, zr),
		Aggregate:  h.Table().ZoneAggregate(p, zr),
		Degenerate: dist.Degenerate,
		Units:      make([]UnitProbability, len(dist.Units)),
	}
	probs := make([]float64, len(dist.Units))
	for i, row := range dist.Units {
		probs[i] = dist.Delta(i)
		out.Units[i] = UnitProbability{
			UnitID:      s.ws.Index.Unit(row).ID,
			SizeTerm:    h.Table().Weight(p, row),
			Probability: probs[i],
			Cumulative:  dist.Cumulative[i],
		}
	}
	out.Entropy = stats.NormalizedEntropy(probs)
	return out, nil
}

// Zone returns the summary of a zone
func (s *DistributionService) Zone(zoneID int) (*ZoneInfo, error) {
	summary, err := s.ws.Index.Summarize(zoneID)
	if err != nil {
		return nil, err
	}
	ids, err := s.ws.Index.UnitsInZone(zoneID)
	if err != nil {
		return nil, err
	}
	return &ZoneInfo{ZoneSummary: summary, UnitIDs: ids}, nil
}
