package matching

import (
	"encoding/json"
	"testing"

	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultSettings(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return e
}

func suv120k() *models.Vehicle {
	return &models.Vehicle{ID: "veh-1", Category: models.CategorySUV, SalePrice: decimal.NewFromInt(120000)}
}

// seniorSUVSpecialist is S1 from the reference scenario.
func seniorSUVSpecialist() models.Salesperson {
	return models.Salesperson{
		ID:              "S1",
		Name:            "Ana",
		Level:           models.LevelSenior,
		Specialties:     []models.Category{models.CategorySUV},
		MaxLeadCapacity: 10,
		Status:          models.StatusActive,
	}
}

// juniorSedanSpecialist is S2 from the reference scenario.
func juniorSedanSpecialist() models.Salesperson {
	return models.Salesperson{
		ID:              "S2",
		Name:            "Bruno",
		Level:           models.LevelJunior,
		Specialties:     []models.Category{models.CategorySedan},
		MaxLeadCapacity: 5,
		AssignmentRules: &models.AssignmentRules{AllowedCategories: []models.Category{}},
		Status:          models.StatusActive,
	}
}

func TestNewEngine_RejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.Weights.Performance = 0.5

	_, err := NewEngine(s, logger.NewNoOpLogger())
	require.Error(t, err)
}

func TestScore_ScenarioA(t *testing.T) {
	e := newTestEngine(t)

	scored, excluded := e.Score(suv120k(), []Candidate{{
		Salesperson: seniorSUVSpecialist(),
		OpenLeads:   1,
		Performance: PerformanceSnapshot{Received: 10, Converted: 4},
	}})

	require.Len(t, scored, 1)
	assert.Empty(t, excluded)

	got := scored[0]
	assert.Equal(t, Breakdown{Category: 100, Value: 100, Level: 100, Workload: 90, Performance: 40}, got.Breakdown)
	// 30 + 25 + 20 + 13.5 + 4 = 92.5
	assert.Equal(t, 93, got.Score)
	assert.Equal(t, []string{
		"specialist in SUV",
		"no value restrictions",
		"SENIOR level ideal for premium vehicles",
		"low workload (1/10)",
		"excellent conversion rate (40%)",
	}, got.Reasons)
	assert.Equal(t, 1, got.OpenLeads)

	d := e.Decide(scored)
	assert.True(t, d.ShouldAutoAssign)
	assert.Equal(t, "S1", d.SalespersonID)
	assert.Equal(t, 93, d.Score)
}

func TestFilterEligible_ScenarioB(t *testing.T) {
	e := newTestEngine(t)

	people := []models.Salesperson{seniorSUVSpecialist(), juniorSedanSpecialist()}
	eligible, excluded := e.FilterEligible(people, map[string]int{"S1": 1, "S2": 5})

	require.Len(t, eligible, 1)
	assert.Equal(t, "S1", eligible[0].Salesperson.ID)
	assert.Equal(t, 1, eligible[0].OpenLeads)

	require.Len(t, excluded, 1)
	assert.Equal(t, Exclusion{SalespersonID: "S2", Reason: ExclusionAtCapacity, OpenLeads: 5, MaxLeadCapacity: 5}, excluded[0])
}

func TestFilterEligible_CapacityBoundary(t *testing.T) {
	e := newTestEngine(t)
	sp := juniorSedanSpecialist()

	eligible, _ := e.FilterEligible([]models.Salesperson{sp}, map[string]int{"S2": 4})
	assert.Len(t, eligible, 1, "capacity-1 open leads is still eligible")

	eligible, _ = e.FilterEligible([]models.Salesperson{sp}, map[string]int{"S2": 5})
	assert.Empty(t, eligible, "open == capacity is excluded")

	eligible, _ = e.FilterEligible([]models.Salesperson{sp}, map[string]int{"S2": 9})
	assert.Empty(t, eligible)
}

func TestFilterEligible_InvalidCapacityDoesNotFailBatch(t *testing.T) {
	e := newTestEngine(t)

	broken := juniorSedanSpecialist()
	broken.ID = "S0"
	broken.MaxLeadCapacity = 0

	eligible, excluded := e.FilterEligible(
		[]models.Salesperson{broken, seniorSUVSpecialist()},
		map[string]int{"S0": 0, "S1": 1},
	)

	require.Len(t, eligible, 1)
	assert.Equal(t, "S1", eligible[0].Salesperson.ID)
	require.Len(t, excluded, 1)
	assert.Equal(t, ExclusionInvalidCapacity, excluded[0].Reason)
	assert.Equal(t, "S0", excluded[0].SalespersonID)
}

func TestScore_ExcludesOverCapacityCandidates(t *testing.T) {
	e := newTestEngine(t)

	full := juniorSedanSpecialist()
	scored, excluded := e.Score(suv120k(), []Candidate{
		{Salesperson: full, OpenLeads: 5},
		{Salesperson: seniorSUVSpecialist(), OpenLeads: 0},
	})

	require.Len(t, scored, 1)
	assert.Equal(t, "S1", scored[0].Salesperson.ID)
	require.Len(t, excluded, 1)
	assert.Equal(t, ExclusionAtCapacity, excluded[0].Reason)
}

func TestScore_CategoryWeightIsExactlyThirty(t *testing.T) {
	e := newTestEngine(t)

	specialist := seniorSUVSpecialist()
	blocked := seniorSUVSpecialist()
	blocked.ID = "S1-blocked"
	blocked.Specialties = nil
	blocked.AssignmentRules = &models.AssignmentRules{AllowedCategories: []models.Category{models.CategoryHatch}}

	perf := PerformanceSnapshot{Received: 7, Converted: 2}
	scored, _ := e.Score(suv120k(), []Candidate{
		{Salesperson: specialist, OpenLeads: 3, Performance: perf},
		{Salesperson: blocked, OpenLeads: 3, Performance: perf},
	})
	require.Len(t, scored, 2)

	assert.Equal(t, 100, scored[0].Breakdown.Category)
	assert.Equal(t, 0, scored[1].Breakdown.Category)
	assert.Equal(t, 30, scored[0].Score-scored[1].Score)
}

func TestScore_SortedDescendingWithStableTies(t *testing.T) {
	e := newTestEngine(t)
	vehicle := &models.Vehicle{ID: "veh-2", Category: models.CategorySedan, SalePrice: decimal.NewFromInt(75000)}

	mk := func(id string, level models.Level, specialties ...models.Category) models.Salesperson {
		return models.Salesperson{ID: id, Level: level, Specialties: specialties, MaxLeadCapacity: 10}
	}

	candidates := []Candidate{
		{Salesperson: mk("tie-a", models.LevelJunior), OpenLeads: 5},
		{Salesperson: mk("best", models.LevelPleno, models.CategorySedan), OpenLeads: 0, Performance: PerformanceSnapshot{Received: 4, Converted: 2}},
		{Salesperson: mk("tie-b", models.LevelJunior), OpenLeads: 5},
		{Salesperson: mk("mid", models.LevelPleno), OpenLeads: 2},
		{Salesperson: mk("tie-c", models.LevelSenior), OpenLeads: 5},
	}

	scored, _ := e.Score(vehicle, candidates)
	require.Len(t, scored, 5)

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
	for _, sc := range scored {
		assert.GreaterOrEqual(t, sc.Score, 0)
		assert.LessOrEqual(t, sc.Score, 100)
		for _, v := range []int{sc.Breakdown.Category, sc.Breakdown.Value, sc.Breakdown.Level, sc.Breakdown.Workload, sc.Breakdown.Performance} {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
		assert.Len(t, sc.Reasons, 5)
	}

	assert.Equal(t, "best", scored[0].Salesperson.ID)
	assert.Equal(t, "mid", scored[1].Salesperson.ID)
	ids := []string{scored[2].Salesperson.ID, scored[3].Salesperson.ID, scored[4].Salesperson.ID}
	assert.Equal(t, []string{"tie-a", "tie-b", "tie-c"}, ids)
}

func TestDecide_Threshold(t *testing.T) {
	e := newTestEngine(t)
	top := func(score int) []ScoredCandidate {
		return []ScoredCandidate{
			{Salesperson: SalespersonSummary{ID: "top"}, Score: score},
			{Salesperson: SalespersonSummary{ID: "second"}, Score: score - 10},
		}
	}

	d := e.Decide(top(80))
	assert.True(t, d.ShouldAutoAssign)
	assert.Equal(t, "top", d.SalespersonID)
	assert.Equal(t, 2, d.EligibleCount)

	d = e.Decide(top(79))
	assert.False(t, d.ShouldAutoAssign)
	assert.Empty(t, d.SalespersonID)
	assert.Equal(t, 79, d.Score)
	assert.Equal(t, 2, d.EligibleCount)
}

func TestDecide_ZeroScoreStillCountsEligible(t *testing.T) {
	e := newTestEngine(t)

	d := e.Decide([]ScoredCandidate{{Salesperson: SalespersonSummary{ID: "low"}, Score: 0}})
	assert.Equal(t, AssignmentDecision{ShouldAutoAssign: false, Score: 0, EligibleCount: 1}, d)
}

func TestScoredCandidate_JSONHidesContactAndRules(t *testing.T) {
	e := newTestEngine(t)

	sp := juniorSedanSpecialist()
	sp.Email = "bruno@dealer.example"
	scored, _ := e.Score(suv120k(), []Candidate{{Salesperson: sp, OpenLeads: 0}})
	require.Len(t, scored, 1)

	raw, err := json.Marshal(scored[0])
	require.NoError(t, err)

	var body struct {
		Salesperson map[string]interface{} `json:"salesperson"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, map[string]interface{}{"id": "S2", "name": "Bruno", "level": string(models.LevelJunior)}, body.Salesperson)
	assert.NotContains(t, string(raw), "bruno@dealer.example")
	assert.NotContains(t, string(raw), "assignmentRules")
}

func TestDecide_ScenarioC(t *testing.T) {
	e := newTestEngine(t)

	eligible, excluded := e.FilterEligible(
		[]models.Salesperson{seniorSUVSpecialist(), juniorSedanSpecialist()},
		map[string]int{"S1": 10, "S2": 5},
	)
	assert.Empty(t, eligible)
	assert.Len(t, excluded, 2)

	scored, _ := e.Score(suv120k(), eligible)
	assert.Empty(t, scored)
	assert.Empty(t, e.TopRecommendations(scored, 3))
	assert.Equal(t, AssignmentDecision{ShouldAutoAssign: false}, e.Decide(scored))
}

func TestTopRecommendations(t *testing.T) {
	e := newTestEngine(t)

	scored := make([]ScoredCandidate, 5)
	for i := range scored {
		scored[i] = ScoredCandidate{Score: 90 - i}
	}

	assert.Len(t, e.TopRecommendations(scored, 2), 2)
	assert.Len(t, e.TopRecommendations(scored, 0), 3, "non-positive limit falls back to default")
	assert.Len(t, e.TopRecommendations(scored, -1), 3)
	assert.Len(t, e.TopRecommendations(scored, 10), 5)
	assert.Equal(t, 90, e.TopRecommendations(scored, 1)[0].Score)
}

func TestScore_CustomWeights(t *testing.T) {
	s := DefaultSettings()
	s.Weights = Weights{Category: 1}
	e, err := NewEngine(s, logger.NewNoOpLogger())
	require.NoError(t, err)

	sp := juniorSedanSpecialist()
	scored, _ := e.Score(suv120k(), []Candidate{{Salesperson: sp, OpenLeads: 0}})
	require.Len(t, scored, 1)
	assert.Equal(t, 50, scored[0].Score)
}
