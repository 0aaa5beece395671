package matching

import (
	"fmt"
	"math"

	"dealership-workers/internal/common/config"
	"dealership-workers/internal/common/errors"

	"github.com/shopspring/decimal"
)

// Weights are the share of each factor in the aggregate score. They must sum to 1.
type Weights struct {
	Category    float64 `json:"category"`
	Value       float64 `json:"value"`
	Level       float64 `json:"level"`
	Workload    float64 `json:"workload"`
	Performance float64 `json:"performance"`
}

func (w Weights) Sum() float64 {
	return w.Category + w.Value + w.Level + w.Workload + w.Performance
}

// Settings holds every constant the engine uses. DefaultSettings reproduces
// the production behaviour; other values exist for experiments and tests.
type Settings struct {
	Weights             Weights
	AutoAssignThreshold int

	// Price bands for the level factor: price <= JuniorPriceCeiling is the
	// junior band, price > SeniorPriceFloor the senior band, the rest pleno.
	JuniorPriceCeiling      decimal.Decimal
	SeniorPriceFloor        decimal.Decimal
	SeniorBandMismatchScore int
	OtherBandMismatchScore  int

	// Occupancy and conversion-rate cutoffs only pick the reason label.
	LowWorkloadBelow       float64
	MediumWorkloadBelow    float64
	ExcellentConversionMin float64
	GoodConversionMin      float64

	DefaultLimit     int
	FetchConcurrency int
}

func DefaultSettings() Settings {
	return Settings{
		Weights: Weights{
			Category:    0.30,
			Value:       0.25,
			Level:       0.20,
			Workload:    0.15,
			Performance: 0.10,
		},
		AutoAssignThreshold:     80,
		JuniorPriceCeiling:      decimal.NewFromInt(50000),
		SeniorPriceFloor:        decimal.NewFromInt(100000),
		SeniorBandMismatchScore: 20,
		OtherBandMismatchScore:  50,
		LowWorkloadBelow:        0.3,
		MediumWorkloadBelow:     0.7,
		ExcellentConversionMin:  0.30,
		GoodConversionMin:       0.15,
		DefaultLimit:            3,
		FetchConcurrency:        8,
	}
}

// SettingsFromConfig overlays the configured values on DefaultSettings.
func SettingsFromConfig(cfg config.MatchingConfig) Settings {
	s := DefaultSettings()
	s.Weights = Weights{
		Category:    cfg.Weights.Category,
		Value:       cfg.Weights.Value,
		Level:       cfg.Weights.Level,
		Workload:    cfg.Weights.Workload,
		Performance: cfg.Weights.Performance,
	}
	if cfg.AutoAssignThreshold != nil {
		s.AutoAssignThreshold = *cfg.AutoAssignThreshold
	}
	if cfg.SeniorBandMismatchScore != nil {
		s.SeniorBandMismatchScore = *cfg.SeniorBandMismatchScore
	}
	if cfg.OtherBandMismatchScore != nil {
		s.OtherBandMismatchScore = *cfg.OtherBandMismatchScore
	}
	if cfg.JuniorPriceCeiling != 0 {
		s.JuniorPriceCeiling = decimal.NewFromInt(cfg.JuniorPriceCeiling)
	}
	if cfg.SeniorPriceFloor != 0 {
		s.SeniorPriceFloor = decimal.NewFromInt(cfg.SeniorPriceFloor)
	}
	if cfg.LowWorkloadBelow != 0 {
		s.LowWorkloadBelow = cfg.LowWorkloadBelow
	}
	if cfg.MediumWorkloadBelow != 0 {
		s.MediumWorkloadBelow = cfg.MediumWorkloadBelow
	}
	if cfg.ExcellentConversionMin != 0 {
		s.ExcellentConversionMin = cfg.ExcellentConversionMin
	}
	if cfg.GoodConversionMin != 0 {
		s.GoodConversionMin = cfg.GoodConversionMin
	}
	if cfg.DefaultLimit != 0 {
		s.DefaultLimit = cfg.DefaultLimit
	}
	if cfg.FetchConcurrency != 0 {
		s.FetchConcurrency = cfg.FetchConcurrency
	}
	return s
}

func (s Settings) Validate() error {
	w := s.Weights
	for name, v := range map[string]float64{
		"category": w.Category, "value": w.Value, "level": w.Level,
		"workload": w.Workload, "performance": w.Performance,
	} {
		if v < 0 {
			return errors.NewInvalidMatchingSettingsError(fmt.Sprintf("weight %s is negative: %v", name, v))
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return errors.NewInvalidMatchingSettingsError(fmt.Sprintf("weights sum to %v, want 1", w.Sum()))
	}
	if s.AutoAssignThreshold < 0 || s.AutoAssignThreshold > 100 {
		return errors.NewInvalidMatchingSettingsError(fmt.Sprintf("auto-assign threshold %d outside [0,100]", s.AutoAssignThreshold))
	}
	if !s.JuniorPriceCeiling.LessThan(s.SeniorPriceFloor) {
		return errors.NewInvalidMatchingSettingsError("junior price ceiling must be below senior price floor")
	}
	if !inScoreRange(s.SeniorBandMismatchScore) || !inScoreRange(s.OtherBandMismatchScore) {
		return errors.NewInvalidMatchingSettingsError("level mismatch scores must be within [0,100]")
	}
	if s.LowWorkloadBelow <= 0 || s.LowWorkloadBelow > s.MediumWorkloadBelow || s.MediumWorkloadBelow > 1 {
		return errors.NewInvalidMatchingSettingsError("workload cutoffs must satisfy 0 < low <= medium <= 1")
	}
	if s.GoodConversionMin < 0 || s.GoodConversionMin > s.ExcellentConversionMin || s.ExcellentConversionMin > 1 {
		return errors.NewInvalidMatchingSettingsError("conversion cutoffs must satisfy 0 <= good <= excellent <= 1")
	}
	if s.DefaultLimit <= 0 {
		return errors.NewInvalidMatchingSettingsError("default limit must be positive")
	}
	if s.FetchConcurrency <= 0 {
		return errors.NewInvalidMatchingSettingsError("fetch concurrency must be positive")
	}
	return nil
}

func inScoreRange(v int) bool {
	return v >= 0 && v <= 100
}
