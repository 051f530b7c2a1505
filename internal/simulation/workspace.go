package simulation

import (
	"fmt"

	"github.com/SANDAG/ABM-sub008/internal/config"
	"github.com/SANDAG/ABM-sub008/internal/destchoice"
	"github.com/SANDAG/ABM-sub008/internal/mode"
	"github.com/SANDAG/ABM-sub008/internal/models"
	"github.com/SANDAG/ABM-sub008/internal/sampler"
	"github.com/SANDAG/ABM-sub008/internal/sizeterm"
	"github.com/SANDAG/ABM-sub008/internal/spatial"
)

// Names of the coefficient sets, as stored in size_coefficients.model.
const (
	ModelDestination = "destination"
	ModelStop        = "stop"
	ModelAirport     = "airport"
)

// Coefficients holds size-term coefficients by model name.
type Coefficients map[string][]models.SizeCoefficient

// Workspace is every model built over one land-use index.
type Workspace struct {
	Index *spatial.Index
	Modes *mode.Model

	Destination *destchoice.Model
	Stop        *destchoice.Model
	Airport     *destchoice.Model // nil when the airport model is disabled

	Visitor       *Runner
	AirportRunner *AirportRunner // nil when the airport model is disabled
}

// NewWorkspace creates unbuilt models and runners. Probability tables are
// built on first use or by BuildProbabilityTables.
func NewWorkspace(cfg *config.ModelConfig, idx *spatial.Index, coefs Coefficients) (*Workspace, error) {
	w := &Workspace{
		Index: idx,
		Modes: mode.NewModel(cfg.Mode, idx),
	}

	var err error
	if w.Destination, err = w.newModel(ModelDestination, cfg.Visitor.Destination, coefs); err != nil {
		return nil, err
	}
	if w.Stop, err = w.newModel(ModelStop, cfg.Visitor.Stop, coefs); err != nil {
		return nil, err
	}
	if w.Visitor, err = NewRunner(cfg.Visitor, cfg.Scheduler, idx, w.Destination, w.Stop, w.Modes); err != nil {
		return nil, err
	}

	if cfg.Airport.Enabled {
		if w.Airport, err = w.newModel(ModelAirport, cfg.Airport.Destination, coefs); err != nil {
			return nil, err
		}
		if w.AirportRunner, err = NewAirportRunner(cfg.Airport, cfg.Scheduler, idx, w.Airport); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Workspace) newModel(name string, cc config.ChoiceConfig, coefs Coefficients) (*destchoice.Model, error) {
	scaling, err := sampler.ParseScalingMode(cc.Scaling)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	eval, err := sizeterm.NewLinearEvaluator(cc.Purposes, coefs[name])
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return destchoice.New(destchoice.Config{
		Name:         name,
		Purposes:     cc.Purposes,
		SampleSize:   cc.SampleSize,
		Scaling:      scaling,
		SizeCoef:     cc.SizeCoef,
		DistanceCoef: cc.DistanceCoef,
		LogsumCoef:   cc.LogsumCoef,
	}, w.Index, eval, destchoice.WithLogsums(w.Modes))
}
