package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole defines the role of a user within an organization.
type OrgRole string

const (
	// OrgRoleAdmin can manage members, invitations, and all resources.
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleCoordinator can manage templates and sessions.
	OrgRoleCoordinator OrgRole = "coordinator"
)

// ValidOrgRoles returns all valid organization roles.
func ValidOrgRoles() []OrgRole {
	return []OrgRole{OrgRoleAdmin, OrgRoleCoordinator}
}

// IsValidOrgRole checks if the given role is a valid organization role.
func IsValidOrgRole(role string) bool {
	for _, r := range ValidOrgRoles() {
		if string(r) == role {
			return true
		}
	}
	return false
}

// Membership represents a user's membership in an organization.
// (user_id, org_id) is unique in the store.
type Membership struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OrgID     uuid.UUID `json:"org_id"`
	Role      OrgRole   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipWithUser includes user details for the team listing.
type MembershipWithUser struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OrgID     uuid.UUID `json:"org_id"`
	Role      OrgRole   `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMembership creates a new Membership.
func NewMembership(userID, orgID uuid.UUID, role OrgRole) *Membership {
	return &Membership{
		ID:        uuid.New(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsAdmin returns true if the membership role is admin.
func (m *Membership) IsAdmin() bool {
	return m.Role == OrgRoleAdmin
}

// InvitationExpiry is how long an invitation remains acceptable.
const InvitationExpiry = 24 * time.Hour

// Invitation is a single-use token granting the right to join an
// organization with a predetermined role. It is deleted when consumed,
// whether accepted or revoked.
type Invitation struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Email     string    `json:"email"`
	Role      OrgRole   `json:"role"`
	Token     string    `json:"-"` // never expose in JSON
	InvitedBy uuid.UUID `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInvitation creates a new Invitation expiring InvitationExpiry from now.
func NewInvitation(orgID uuid.UUID, email string, role OrgRole, token string, invitedBy uuid.UUID) *Invitation {
	now := time.Now()
	return &Invitation{
		ID:        uuid.New(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		Token:     token,
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(InvitationExpiry),
		CreatedAt: now,
	}
}

// IsExpired returns true if the invitation has expired.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
