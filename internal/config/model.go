package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SANDAG/ABM-sub008/internal/mode"
	"github.com/SANDAG/ABM-sub008/internal/models"
)

// ModelConfig holds every simulation setting read from the model file.
type ModelConfig struct {
	Visitor   VisitorConfig   `yaml:"visitor"`
	Airport   AirportConfig   `yaml:"airport"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Mode      mode.Params     `yaml:"mode"`
}

// ChoiceConfig configures one location choice model.
type ChoiceConfig struct {
	Purposes     []string  `yaml:"purposes" validate:"required,min=1,unique,dive,required"`
	SampleSize   int       `yaml:"sample_size" validate:"gt=0"`
	Scaling      string    `yaml:"scaling" validate:"omitempty,oneof=zone_offset inclusive"`
	SizeCoef     float64   `yaml:"size_coef"`
	DistanceCoef []float64 `yaml:"distance_coef" validate:"required"`
	LogsumCoef   float64   `yaml:"logsum_coef"`
}

// PurposeCount is the number of entities generated for a purpose.
type PurposeCount struct {
	Purpose string `yaml:"purpose" validate:"required"`
	Count   int    `yaml:"count" validate:"gte=0"`
}

// VisitorConfig configures visitor tour generation and choice.
type VisitorConfig struct {
	Destination ChoiceConfig   `yaml:"destination"`
	Stop        ChoiceConfig   `yaml:"stop"`
	Tours       []PurposeCount `yaml:"tours" validate:"dive"`

	BaseSeed   int64   `yaml:"base_seed"`
	SeedStride int64   `yaml:"seed_stride" validate:"gt=0"`
	SampleRate float64 `yaml:"sample_rate" validate:"gt=0,lte=1"`

	// OriginAttribute weights origin units of generated tours
	OriginAttribute string `yaml:"origin_attribute" validate:"required"`

	// StopCountShares[n] is the probability of n stops on a half tour
	StopCountShares []float64 `yaml:"stop_count_shares" validate:"required,min=1,dive,gte=0"`
	// StopPurposeShares is aligned with Stop.Purposes
	StopPurposeShares []float64 `yaml:"stop_purpose_shares" validate:"required,dive,gte=0"`

	// TraceTour logs every choice of one tour id; Seek skips all others
	TraceTour int  `yaml:"trace_tour"`
	Seek      bool `yaml:"seek"`
}

// AirportConfig configures airport party location choice.
type AirportConfig struct {
	Enabled          bool           `yaml:"enabled"`
	AirportUnit      int            `yaml:"airport_unit" validate:"required_if=Enabled true"`
	Destination      ChoiceConfig   `yaml:"destination"`
	InternalPurposes []string       `yaml:"internal_purposes"`
	Parties          []PurposeCount `yaml:"parties" validate:"dive"`
	DepartingShare   float64        `yaml:"departing_share" validate:"gte=0,lte=1"`
	BaseSeed         int64          `yaml:"base_seed"`
	SeedStride       int64          `yaml:"seed_stride" validate:"gt=0"`
}

// SchedulerConfig configures the batch scheduler.
type SchedulerConfig struct {
	Concurrent  bool   `yaml:"concurrent"`
	Parallelism int    `yaml:"parallelism" validate:"gte=0"`
	Threshold   int    `yaml:"threshold" validate:"gte=0"`
	Policy      string `yaml:"policy" validate:"omitempty,oneof=divide static"`
}

// DefaultModelConfig returns the settings used when no model file exists.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Visitor: VisitorConfig{
			Destination: ChoiceConfig{
				Purposes:     []string{"work", "recreation", "dining"},
				SampleSize:   30,
				Scaling:      "zone_offset",
				SizeCoef:     1.0,
				DistanceCoef: []float64{-0.10, -0.15, -0.25},
				LogsumCoef:   0.5,
			},
			Stop: ChoiceConfig{
				Purposes:     []string{"work", "recreation", "dining", "shopping"},
				SampleSize:   30,
				Scaling:      "zone_offset",
				SizeCoef:     1.0,
				DistanceCoef: []float64{-0.3, -0.3, -0.4, -0.4},
				LogsumCoef:   0.3,
			},
			Tours: []PurposeCount{
				{Purpose: "work", Count: 200},
				{Purpose: "recreation", Count: 600},
				{Purpose: "dining", Count: 200},
			},
			BaseSeed:          1000001,
			SeedStride:        1,
			SampleRate:        1.0,
			OriginAttribute:   "hotel_rooms",
			StopCountShares:   []float64{0.6, 0.25, 0.1, 0.05},
			StopPurposeShares: []float64{0.1, 0.3, 0.35, 0.25},
		},
		Airport: AirportConfig{
			Destination: ChoiceConfig{
				Purposes:     []string{"resident_business", "resident_personal", "visitor_business", "visitor_personal"},
				SampleSize:   1,
				DistanceCoef: []float64{0, 0, 0, 0},
			},
			InternalPurposes: []string{"employee"},
			DepartingShare:   0.5,
			BaseSeed:         1000,
			SeedStride:       101,
		},
		Scheduler: SchedulerConfig{
			Concurrent: true,
			Threshold:  1000,
			Policy:     "divide",
		},
		Mode: mode.DefaultParams(),
	}
}

// LoadModel overlays the YAML file at path on the defaults and validates
// the result. A missing file yields the defaults.
func LoadModel(path string) (*ModelConfig, error) {
	cfg := DefaultModelConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c *ModelConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid model config: %w", err)
	}

	checks := []struct {
		name string
		cc   ChoiceConfig
	}{
		{"visitor.destination", c.Visitor.Destination},
		{"visitor.stop", c.Visitor.Stop},
	}
	if c.Airport.Enabled {
		checks = append(checks, struct {
			name string
			cc   ChoiceConfig
		}{"airport.destination", c.Airport.Destination})
	}
	for _, ch := range checks {
		if len(ch.cc.DistanceCoef) != len(ch.cc.Purposes) {
			return fmt.Errorf("invalid model config: %s has %d purposes but %d distance coefficients",
				ch.name, len(ch.cc.Purposes), len(ch.cc.DistanceCoef))
		}
	}

	if _, ok := models.ParseAttribute(c.Visitor.OriginAttribute); !ok {
		return fmt.Errorf("invalid model config: unknown origin attribute %q", c.Visitor.OriginAttribute)
	}
	if len(c.Visitor.StopPurposeShares) != len(c.Visitor.Stop.Purposes) {
		return fmt.Errorf("invalid model config: %d stop purpose shares for %d stop purposes",
			len(c.Visitor.StopPurposeShares), len(c.Visitor.Stop.Purposes))
	}
	for _, tc := range c.Visitor.Tours {
		if !slices.Contains(c.Visitor.Destination.Purposes, tc.Purpose) {
			return fmt.Errorf("invalid model config: tour purpose %q has no destination size terms", tc.Purpose)
		}
	}
	if c.Airport.Enabled {
		for _, pc := range c.Airport.Parties {
			if !slices.Contains(c.Airport.Destination.Purposes, pc.Purpose) && !slices.Contains(c.Airport.InternalPurposes, pc.Purpose) {
				return fmt.Errorf("invalid model config: airport purpose %q is neither located nor internal", pc.Purpose)
			}
		}
	}
	return nil
}
