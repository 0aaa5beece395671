package matching

import (
	"sort"

	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/metrics"
	"dealership-workers/internal/models"

	"github.com/shopspring/decimal"
)

// Engine ranks salespeople for a vehicle. It performs no I/O; every input is
// fetched by the caller before a pass starts.
type Engine struct {
	settings Settings
	weights  [5]decimal.Decimal
	logger   logger.Logger
}

func NewEngine(settings Settings, log logger.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	w := settings.Weights
	return &Engine{
		settings: settings,
		weights: [5]decimal.Decimal{
			decimal.NewFromFloat(w.Category),
			decimal.NewFromFloat(w.Value),
			decimal.NewFromFloat(w.Level),
			decimal.NewFromFloat(w.Workload),
			decimal.NewFromFloat(w.Performance),
		},
		logger: log.WithFields(map[string]interface{}{"component": "matching-engine"}),
	}, nil
}

func (e *Engine) Settings() Settings {
	return e.settings
}

// FilterEligible drops salespeople at or over capacity. Roster order is kept
// so it can serve as the tie-break when scores are equal.
func (e *Engine) FilterEligible(people []models.Salesperson, openLeads map[string]int) ([]Candidate, []Exclusion) {
	eligible := make([]Candidate, 0, len(people))
	var excluded []Exclusion

	for _, sp := range people {
		open := openLeads[sp.ID]
		if ex, ok := e.exclusionFor(sp, open); ok {
			excluded = append(excluded, ex)
			continue
		}
		eligible = append(eligible, Candidate{Salesperson: sp, OpenLeads: open})
	}
	return eligible, excluded
}

func (e *Engine) exclusionFor(sp models.Salesperson, open int) (Exclusion, bool) {
	ex := Exclusion{SalespersonID: sp.ID, OpenLeads: open, MaxLeadCapacity: sp.MaxLeadCapacity}
	switch {
	case sp.MaxLeadCapacity <= 0:
		ex.Reason = ExclusionInvalidCapacity
		e.logger.Error("salesperson has invalid lead capacity", map[string]interface{}{
			"salespersonId":   sp.ID,
			"maxLeadCapacity": sp.MaxLeadCapacity,
			"errorCode":       "INVALID_LEAD_CAPACITY",
		})
	case open >= sp.MaxLeadCapacity:
		ex.Reason = ExclusionAtCapacity
	default:
		return Exclusion{}, false
	}
	metrics.MatchingCandidatesExcluded.WithLabelValues(string(ex.Reason)).Inc()
	return ex, true
}

// Score computes one ScoredCandidate per candidate and sorts them by score,
// highest first. Candidates that slipped past FilterEligible over capacity
// are excluded here as well.
func (e *Engine) Score(vehicle *models.Vehicle, candidates []Candidate) ([]ScoredCandidate, []Exclusion) {
	scored := make([]ScoredCandidate, 0, len(candidates))
	var excluded []Exclusion

	for i := range candidates {
		c := &candidates[i]
		if ex, ok := e.exclusionFor(c.Salesperson, c.OpenLeads); ok {
			excluded = append(excluded, ex)
			continue
		}
		sc, err := e.scoreOne(vehicle, c)
		if err != nil {
			e.logger.Error("failed to score candidate", map[string]interface{}{
				"salespersonId": c.Salesperson.ID,
				"error":         err,
			})
			continue
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	metrics.MatchingCandidatesScored.Add(float64(len(scored)))
	if len(scored) > 0 {
		metrics.MatchingTopScore.Observe(float64(scored[0].Score))
	}
	return scored, excluded
}

func (e *Engine) scoreOne(vehicle *models.Vehicle, c *Candidate) (ScoredCandidate, error) {
	sp := &c.Salesperson

	workload, err := e.settings.WorkloadMatch(sp, c.OpenLeads)
	if err != nil {
		return ScoredCandidate{}, err
	}
	factors := [5]Factor{
		CategoryMatch(sp, vehicle.Category),
		ValueMatch(sp, vehicle.SalePrice),
		e.settings.LevelMatch(sp.Level, vehicle.SalePrice),
		workload,
		e.settings.PerformanceMatch(c.Performance),
	}

	total := decimal.Zero
	reasons := make([]string, 0, len(factors))
	for i, f := range factors {
		total = total.Add(e.weights[i].Mul(decimal.NewFromInt(int64(f.Score))))
		reasons = append(reasons, f.Reason)
	}

	return ScoredCandidate{
		Salesperson: summarize(c.Salesperson),
		Score:       clampScore(int(total.Round(0).IntPart())),
		Breakdown: Breakdown{
			Category:    factors[0].Score,
			Value:       factors[1].Score,
			Level:       factors[2].Score,
			Workload:    factors[3].Score,
			Performance: factors[4].Score,
		},
		Reasons:   reasons,
		OpenLeads: c.OpenLeads,
	}, nil
}

// TopRecommendations returns the first n of an already ranked list. n <= 0
// falls back to the configured default.
func (e *Engine) TopRecommendations(scored []ScoredCandidate, n int) []ScoredCandidate {
	if n <= 0 {
		n = e.settings.DefaultLimit
	}
	if n > len(scored) {
		n = len(scored)
	}
	out := make([]ScoredCandidate, n)
	copy(out, scored[:n])
	return out
}

// Decide auto-assigns the top candidate when it reaches the threshold.
func (e *Engine) Decide(scored []ScoredCandidate) AssignmentDecision {
	if len(scored) == 0 {
		return AssignmentDecision{ShouldAutoAssign: false}
	}
	top := scored[0]
	if top.Score >= e.settings.AutoAssignThreshold {
		return AssignmentDecision{ShouldAutoAssign: true, SalespersonID: top.Salesperson.ID, Score: top.Score, EligibleCount: len(scored)}
	}
	return AssignmentDecision{ShouldAutoAssign: false, Score: top.Score, EligibleCount: len(scored)}
}
