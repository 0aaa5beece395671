package matching

import "dealership-workers/internal/models"

// Factor is one component score with the reason shown to the admin.
type Factor struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type Breakdown struct {
	Category    int `json:"category"`
	Value       int `json:"value"`
	Level       int `json:"level"`
	Workload    int `json:"workload"`
	Performance int `json:"performance"`
}

// PerformanceSnapshot counts leads received and converted since the start of
// the current month.
type PerformanceSnapshot struct {
	Received  int `json:"received"`
	Converted int `json:"converted"`
}

// Candidate is an eligible salesperson with the aggregates fetched for this pass.
type Candidate struct {
	Salesperson models.Salesperson
	OpenLeads   int
	Performance PerformanceSnapshot
}

// SalespersonSummary is the part of a salesperson shown alongside a score.
type SalespersonSummary struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Level models.Level `json:"level"`
}

func summarize(sp models.Salesperson) SalespersonSummary {
	return SalespersonSummary{ID: sp.ID, Name: sp.Name, Level: sp.Level}
}

type ScoredCandidate struct {
	Salesperson SalespersonSummary `json:"salesperson"`
	Score       int                `json:"score"`
	Breakdown   Breakdown          `json:"breakdown"`
	Reasons     []string           `json:"reasons"`
	OpenLeads   int                `json:"openLeads"`
}

type ExclusionReason string

const (
	ExclusionAtCapacity      ExclusionReason = "AT_CAPACITY"
	ExclusionInvalidCapacity ExclusionReason = "INVALID_CAPACITY"
)

type Exclusion struct {
	SalespersonID   string          `json:"salespersonId"`
	Reason          ExclusionReason `json:"reason"`
	OpenLeads       int             `json:"openLeads"`
	MaxLeadCapacity int             `json:"maxLeadCapacity"`
}

// Ranking is the outcome of a full matching pass for one vehicle.
type Ranking struct {
	Vehicle    *models.Vehicle   `json:"vehicle"`
	Candidates []ScoredCandidate `json:"candidates"`
	Excluded   []Exclusion       `json:"excluded,omitempty"`
}

type AssignmentDecision struct {
	ShouldAutoAssign bool   `json:"shouldAutoAssign"`
	SalespersonID    string `json:"salespersonId,omitempty"`
	Score            int    `json:"score"`
	EligibleCount    int    `json:"eligibleCount"`
}
