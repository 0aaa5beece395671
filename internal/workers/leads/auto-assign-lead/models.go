// internal/workers/leads/auto-assign-lead/models.go
package autoassignlead

import (
	"time"

	"dealership-workers/internal/matching"
)

const EventTypeDecided = "lead.auto_assignment.decided"

type Input struct {
	LeadID    string `json:"leadId"`
	VehicleID string `json:"vehicleId"`
}

type Output struct {
	ShouldAutoAssign bool   `json:"shouldAutoAssign"`
	SalespersonID    string `json:"salespersonId,omitempty"`
	Score            int    `json:"score"`
}

// DecisionEvent is published once per lead after the decision is made.
type DecisionEvent struct {
	EventID          string    `json:"eventId"`
	LeadID           string    `json:"leadId"`
	VehicleID        string    `json:"vehicleId"`
	ShouldAutoAssign bool      `json:"shouldAutoAssign"`
	SalespersonID    string    `json:"salespersonId,omitempty"`
	Score            int       `json:"score"`
	EligibleCount    int       `json:"eligibleCount"`
	DecidedAt        time.Time `json:"decidedAt"`
}

// cachedDecision is what lives in Redis per lead. Notified flips once the
// event and triage email went out, so a redelivered job neither re-scores
// nor re-notifies.
type cachedDecision struct {
	Decision  matching.AssignmentDecision `json:"decision"`
	EventID   string                      `json:"eventId"`
	DecidedAt time.Time                   `json:"decidedAt"`
	Notified  bool                        `json:"notified"`
}

const inputSchema = `{
	"type": "object",
	"required": ["leadId", "vehicleId"],
	"properties": {
		"leadId": {"type": "string", "minLength": 1},
		"vehicleId": {"type": "string", "minLength": 1}
	}
}`
