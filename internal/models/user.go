package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated account. Password-based users carry a
// bcrypt hash; SSO users carry an OIDC subject instead. Both may be set.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash *string   `json:"-"`
	OIDCSubject  *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new password-authenticated User.
func NewUser(email, name, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: &passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewOIDCUser creates a new User authenticated via an OIDC provider.
func NewOIDCUser(subject, email, name string) *User {
	now := time.Now()
	return &User{
		ID:          uuid.New(),
		Email:       email,
		Name:        name,
		OIDCSubject: &subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasPassword returns true if the user can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
