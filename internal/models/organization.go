// Package models defines the domain models for Handout.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant running giveaway sessions.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Country   string    `json:"country,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrganization creates a new Organization with the given details.
func NewOrganization(name, email, city, state, country, website string) *Organization {
	now := time.Now()
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		City:      city,
		State:     state,
		Country:   country,
		Website:   website,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
