// internal/models/salesperson.go
package models

import "github.com/shopspring/decimal"

type Level string

const (
	LevelJunior Level = "JUNIOR"
	LevelPleno  Level = "PLENO"
	LevelSenior Level = "SENIOR"
)

const (
	RoleSalesperson = "SALESPERSON"
	StatusActive    = "ACTIVE"
)

type Salesperson struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email,omitempty"`
	Level           Level            `json:"level"`
	Specialties     []Category       `json:"specialties"`
	MaxLeadCapacity int              `json:"maxLeadCapacity"`
	AssignmentRules *AssignmentRules `json:"assignmentRules,omitempty"`
	Status          string           `json:"status"`
}

// AssignmentRules restricts which vehicles a salesperson should be offered.
// Nil bounds and an empty category list mean no restriction.
type AssignmentRules struct {
	MinValue          *decimal.Decimal `json:"minValue,omitempty"`
	MaxValue          *decimal.Decimal `json:"maxValue,omitempty"`
	AllowedCategories []Category       `json:"allowedCategories,omitempty"`
}

func (s *Salesperson) HasSpecialty(c Category) bool {
	for _, sp := range s.Specialties {
		if sp == c {
			return true
		}
	}
	return false
}

// Allows reports whether the rules permit category c.
func (r *AssignmentRules) Allows(c Category) bool {
	if r == nil || len(r.AllowedCategories) == 0 {
		return true
	}
	for _, allowed := range r.AllowedCategories {
		if allowed == c {
			return true
		}
	}
	return false
}
