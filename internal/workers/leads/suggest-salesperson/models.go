// internal/workers/leads/suggest-salesperson/models.go
package suggestsalesperson

import (
	"time"

	"dealership-workers/internal/matching"
)

type Input struct {
	VehicleID string `json:"vehicleId"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	Recommendations []matching.ScoredCandidate `json:"recommendations"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
}

// Snapshot is the document stored per suggestion pass so admins can see what
// was recommended at the time.
type Snapshot struct {
	SnapshotID      string                     `json:"snapshotId"`
	VehicleID       string                     `json:"vehicleId"`
	Category        string                     `json:"category"`
	SalePrice       string                     `json:"salePrice"`
	Limit           int                        `json:"limit"`
	Recommendations []matching.ScoredCandidate `json:"recommendations"`
	Excluded        []matching.Exclusion       `json:"excluded,omitempty"`
	EligibleCount   int                        `json:"eligibleCount"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
}

const inputSchema = `{
	"type": "object",
	"required": ["vehicleId"],
	"properties": {
		"vehicleId": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1, "maximum": 50}
	}
}`
