// internal/models/lead.go
package models

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "NEW"
	LeadStatusContacted   LeadStatus = "CONTACTED"
	LeadStatusNegotiating LeadStatus = "NEGOTIATING"
	LeadStatusConverted   LeadStatus = "CONVERTED"
	LeadStatusLost        LeadStatus = "LOST"
	LeadStatusArchived    LeadStatus = "ARCHIVED"
)

// TerminalLeadStatuses are the statuses that no longer count against a
// salesperson's capacity.
var TerminalLeadStatuses = []LeadStatus{
	LeadStatusConverted,
	LeadStatusLost,
	LeadStatusArchived,
}
