package matching

import (
	"fmt"

	"dealership-workers/internal/common/errors"
	"dealership-workers/internal/models"

	"github.com/shopspring/decimal"
)

// The calculators below are pure. Each returns a score in [0,100] and the
// reason the admin sees next to it.

func CategoryMatch(sp *models.Salesperson, category models.Category) Factor {
	if sp.HasSpecialty(category) {
		return Factor{Score: 100, Reason: fmt.Sprintf("specialist in %s", category)}
	}
	if sp.AssignmentRules.Allows(category) {
		return Factor{Score: 50, Reason: fmt.Sprintf("not a specialist but may serve %s", category)}
	}
	return Factor{Score: 0, Reason: fmt.Sprintf("%s not permitted", category)}
}

// ValueMatch gates on the salesperson's price bounds. Bounds are inclusive and
// a violated bound zeroes the factor without excluding the candidate.
func ValueMatch(sp *models.Salesperson, price decimal.Decimal) Factor {
	var minValue, maxValue *decimal.Decimal
	if sp.AssignmentRules != nil {
		minValue = sp.AssignmentRules.MinValue
		maxValue = sp.AssignmentRules.MaxValue
	}

	switch {
	case minValue != nil && price.LessThan(*minValue):
		return Factor{Score: 0, Reason: fmt.Sprintf("below minimum value (%s)", minValue.String())}
	case maxValue != nil && price.GreaterThan(*maxValue):
		return Factor{Score: 0, Reason: fmt.Sprintf("above maximum value (%s)", maxValue.String())}
	case minValue != nil && maxValue != nil:
		return Factor{Score: 100, Reason: fmt.Sprintf("ideal value for %s", sp.Level)}
	case minValue != nil || maxValue != nil:
		return Factor{Score: 100, Reason: "value within range"}
	default:
		return Factor{Score: 100, Reason: "no value restrictions"}
	}
}

// IdealLevel returns the level that best fits a price and the name of its band.
func (s Settings) IdealLevel(price decimal.Decimal) (models.Level, string) {
	switch {
	case price.GreaterThan(s.SeniorPriceFloor):
		return models.LevelSenior, "premium"
	case price.LessThanOrEqual(s.JuniorPriceCeiling):
		return models.LevelJunior, "entry"
	default:
		return models.LevelPleno, "mid-range"
	}
}

func (s Settings) LevelMatch(level models.Level, price decimal.Decimal) Factor {
	ideal, band := s.IdealLevel(price)
	if level == ideal {
		return Factor{Score: 100, Reason: fmt.Sprintf("%s level ideal for %s vehicles", level, band)}
	}

	score := s.OtherBandMismatchScore
	if ideal == models.LevelSenior {
		score = s.SeniorBandMismatchScore
	}
	return Factor{
		Score:  score,
		Reason: fmt.Sprintf("%s level, %s preferred for %s vehicles", level, ideal, band),
	}
}

// WorkloadMatch rewards free capacity. A non-positive capacity is a data
// integrity problem and is reported instead of scored.
func (s Settings) WorkloadMatch(sp *models.Salesperson, openLeads int) (Factor, error) {
	capacity := sp.MaxLeadCapacity
	if capacity <= 0 {
		return Factor{}, errors.NewInvalidLeadCapacityError(sp.ID, capacity)
	}

	free := capacity - openLeads
	if free < 0 {
		free = 0
	}
	score := percent(free, capacity)

	occupancy := float64(openLeads) / float64(capacity)
	label := "high"
	switch {
	case occupancy < s.LowWorkloadBelow:
		label = "low"
	case occupancy < s.MediumWorkloadBelow:
		label = "medium"
	}
	return Factor{
		Score:  score,
		Reason: fmt.Sprintf("%s workload (%d/%d)", label, openLeads, capacity),
	}, nil
}

// PerformanceMatch scores this month's conversion rate. No leads received
// means a rate of 0; more conversions than leads is clamped to 100.
func (s Settings) PerformanceMatch(p PerformanceSnapshot) Factor {
	rate := 0.0
	pct := 0
	if p.Received > 0 {
		rate = float64(p.Converted) / float64(p.Received)
		pct = percent(p.Converted, p.Received)
	}
	pct = clampScore(pct)

	switch {
	case rate >= s.ExcellentConversionMin:
		return Factor{Score: pct, Reason: fmt.Sprintf("excellent conversion rate (%d%%)", pct)}
	case rate >= s.GoodConversionMin:
		return Factor{Score: pct, Reason: fmt.Sprintf("good conversion rate (%d%%)", pct)}
	default:
		return Factor{Score: pct, Reason: fmt.Sprintf("conversion rate still developing (%d%%)", pct)}
	}
}

// percent returns round(num*100/den), half away from zero.
func percent(num, den int) int {
	return int(decimal.NewFromInt(int64(num)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(den))).
		Round(0).
		IntPart())
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
