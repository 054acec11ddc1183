package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketType describes how tickets are handed out during a session.
type TicketType string

const (
	// TicketTypeNumbered hands out sequentially numbered tickets.
	TicketTypeNumbered TicketType = "numbered"
	// TicketTypeTimeslot assigns tickets to fixed time slots.
	TicketTypeTimeslot TicketType = "timeslot"
)

// ValidTicketTypes returns all valid ticket types.
func ValidTicketTypes() []TicketType {
	return []TicketType{TicketTypeNumbered, TicketTypeTimeslot}
}

// IsValidTicketType checks if the ticket type is valid.
func IsValidTicketType(t string) bool {
	for _, valid := range ValidTicketTypes() {
		if string(valid) == t {
			return true
		}
	}
	return false
}

// Template is a reusable definition of a recurring session's parameters,
// owned by exactly one organization.
type Template struct {
	ID               uuid.UUID  `json:"id"`
	OrgID            uuid.UUID  `json:"org_id"`
	Name             string     `json:"name"`
	TicketType       TicketType `json:"ticket_type"`
	StartTime        string     `json:"start_time"` // HH:MM, local to the organization
	TicketsPerPeriod int        `json:"tickets_per_period"`
	NumPeriods       int        `json:"num_periods"`
	AdditionalInfo   string     `json:"additional_info,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewTemplate creates a new Template for the given organization.
func NewTemplate(orgID uuid.UUID, name string, ticketType TicketType, startTime string, ticketsPerPeriod, numPeriods int, additionalInfo string) *Template {
	now := time.Now()
	return &Template{
		ID:               uuid.New(),
		OrgID:            orgID,
		Name:             name,
		TicketType:       ticketType,
		StartTime:        startTime,
		TicketsPerPeriod: ticketsPerPeriod,
		NumPeriods:       numPeriods,
		AdditionalInfo:   additionalInfo,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TotalTickets returns the number of tickets a session from this template offers.
func (t *Template) TotalTickets() int {
	return t.TicketsPerPeriod * t.NumPeriods
}
