package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a scheduled session.
type SessionStatus string

const (
	// SessionStatusActive means the session is upcoming or in progress.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusCompleted means the session's date has passed.
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusCancelled means the session was called off.
	SessionStatusCancelled SessionStatus = "cancelled"
)

// ValidSessionStatuses returns all valid session statuses.
func ValidSessionStatuses() []SessionStatus {
	return []SessionStatus{SessionStatusActive, SessionStatusCompleted, SessionStatusCancelled}
}

// IsValidSessionStatus checks if the status is valid.
func IsValidSessionStatus(s string) bool {
	for _, valid := range ValidSessionStatuses() {
		if string(valid) == s {
			return true
		}
	}
	return false
}

// Session is a scheduled, dated instantiation of a Template. It belongs to
// the template's organization transitively.
type Session struct {
	ID         uuid.UUID     `json:"id"`
	TemplateID uuid.UUID     `json:"template_id"`
	Date       time.Time     `json:"date"`
	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// SessionWithTemplate embeds the owning template for scoped listings.
type SessionWithTemplate struct {
	Session
	TemplateName string     `json:"template_name"`
	TicketType   TicketType `json:"ticket_type"`
	StartTime    string     `json:"start_time"`
	OrgID        uuid.UUID  `json:"org_id"`
}

// PublicSession is the public listing row: a session embedded with its
// template and organization details in one record.
type PublicSession struct {
	ID               uuid.UUID  `json:"id"`
	Date             time.Time  `json:"date"`
	TemplateName     string     `json:"template_name"`
	TicketType       TicketType `json:"ticket_type"`
	StartTime        string     `json:"start_time"`
	TicketsPerPeriod int        `json:"tickets_per_period"`
	NumPeriods       int        `json:"num_periods"`
	AdditionalInfo   string     `json:"additional_info,omitempty"`
	OrgID            uuid.UUID  `json:"org_id"`
	OrgName          string     `json:"org_name"`
	OrgCity          string     `json:"org_city,omitempty"`
	OrgState         string     `json:"org_state,omitempty"`
	OrgWebsite       string     `json:"org_website,omitempty"`
}

// NewSession creates a new active Session for the given template and date.
func NewSession(templateID uuid.UUID, date time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		TemplateID: templateID,
		Date:       date,
		Status:     SessionStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
