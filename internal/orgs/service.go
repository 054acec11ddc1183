// Package orgs implements the organization membership lifecycle: bootstrap,
// current-organization resolution, invitations, and member management.
package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/handout-labs/handout/internal/auth"
	"github.com/handout-labs/handout/internal/models"
)

// Service errors returned to handlers for status mapping.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoMemberships      = errors.New("user has no organization memberships")
	ErrNotMember          = errors.New("user is not a member of this organization")
	ErrMemberNotFound     = errors.New("member not found")
	ErrSelfRemoval        = errors.New("cannot remove yourself from the organization")
	ErrLastAdmin          = errors.New("organization must retain at least one admin")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
)

// Store defines the data access the service needs.
type Store interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateMembership(ctx context.Context, m *models.Membership) error
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
	GetMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
	GetMembershipsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.MembershipWithUser, error)
	DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error
	CountAdminsByOrgID(ctx context.Context, orgID uuid.UUID) (int, error)

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	GetInvitationByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	GetInvitationsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error)
	DeleteInvitation(ctx context.Context, id uuid.UUID) error
}

// Service owns the organization and membership workflows.
type Service struct {
	store   Store
	baseURL string
	logger  zerolog.Logger
}

// NewService creates a Service. baseURL is the externally reachable origin
// used to build invitation accept links.
func NewService(store Store, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "orgs").Logger(),
	}
}

// BootstrapRequest carries everything needed to register an organization and
// its first admin in one step.
type BootstrapRequest struct {
	OrgName    string
	OrgEmail   string
	City       string
	State      string
	Country    string
	Website    string
	AdminName  string
	AdminEmail string
	Password   string
}

// BootstrapResult reports what was created. The caller is not logged in
// afterwards; registration and login are separate steps.
type BootstrapResult struct {
	Org  *models.Organization
	User *models.User
}

// Bootstrap creates the first admin user, the organization, and the admin
// membership, in that order. The steps are sequenced rather than atomic: an
// organization insert failure leaves an orphaned user account and is
// reported as an error, while a membership insert failure is logged but the
// call still succeeds. A retry with the same email surfaces ErrEmailTaken.
func (s *Service) Bootstrap(ctx context.Context, req BootstrapRequest) (*BootstrapResult, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, req.AdminEmail); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(req.AdminEmail, req.AdminName, hash)
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	org := models.NewOrganization(req.OrgName, req.OrgEmail, req.City, req.State, req.Country, req.Website)
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", user.ID.String()).
			Msg("organization insert failed after user creation, user account orphaned")
		return nil, fmt.Errorf("create organization: %w", err)
	}

	membership := models.NewMembership(user.ID, org.ID, models.OrgRoleAdmin)
	if err := s.store.CreateMembership(ctx, membership); err != nil {
		s.logger.Warn().Err(err).
			Str("org_id", org.ID.String()).
			Str("user_id", user.ID.String()).
			Msg("admin membership insert failed during bootstrap")
	}

	s.logger.Info().
		Str("org_id", org.ID.String()).
		Str("user_id", user.ID.String()).
		Msg("organization bootstrapped")

	return &BootstrapResult{Org: org, User: user}, nil
}

// Resolution is the outcome of resolving a user's current organization.
// Changed is true when the resolved organization differs from the stored
// preference, meaning the caller should persist the new selection.
type Resolution struct {
	Org     *models.Organization
	Role    models.OrgRole
	Changed bool
}

// ResolveCurrentOrg picks the organization a user is operating in. The
// preferred ID (from the session, uuid.Nil when absent) wins when the user
// is still a member of it; otherwise the user's oldest membership is used.
// Returns ErrNoMemberships when the user belongs to no organization.
func (s *Service) ResolveCurrentOrg(ctx context.Context, userID, preferred uuid.UUID) (*Resolution, error) {
	memberships, err := s.store.GetMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, ErrNoMemberships
	}

	selected := memberships[0]
	if preferred != uuid.Nil {
		for _, m := range memberships {
			if m.OrgID == preferred {
				selected = m
				break
			}
		}
	}

	org, err := s.store.GetOrganizationByID(ctx, selected.OrgID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &Resolution{
		Org:     org,
		Role:    selected.Role,
		Changed: selected.OrgID != preferred,
	}, nil
}

// Membership returns the user's membership in the given organization, or
// ErrNotMember.
func (s *Service) Membership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	m, err := s.store.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// Members lists an organization's memberships with user details.
func (s *Service) Members(ctx context.Context, orgID uuid.UUID) ([]*models.MembershipWithUser, error) {
	members, err := s.store.GetMembershipsByOrgID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RemoveMember removes a user from an organization. Self-removal is
// rejected, and the last admin of an organization cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, orgID, targetUserID, actorUserID uuid.UUID) error {
	if targetUserID == actorUserID {
		return ErrSelfRemoval
	}

	m, err := s.store.GetMembershipByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("get membership: %w", err)
	}

	if m.Role == models.OrgRoleAdmin {
		admins, err := s.store.CountAdminsByOrgID(ctx, orgID)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.store.DeleteMembership(ctx, targetUserID, orgID); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("user_id", targetUserID.String()).
		Str("removed_by", actorUserID.String()).
		Msg("member removed")

	return nil
}
