package orgs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/handout-labs/handout/internal/models"
)

// GenerateInviteToken returns a 64-character hex token from 32 random bytes.
func GenerateInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IssueResult is a freshly created invitation with the link the invitee
// should follow. The link is only returned here; the token is never exposed
// through listings.
type IssueResult struct {
	Invitation *models.Invitation
	AcceptURL  string
}

// Issue creates an invitation for the given email and role. Duplicate
// invitations for the same email are allowed; each carries its own token
// and expiry.
func (s *Service) Issue(ctx context.Context, orgID uuid.UUID, email, role string, invitedBy uuid.UUID) (*IssueResult, error) {
	if !models.IsValidOrgRole(role) {
		return nil, ErrInvalidRole
	}

	token, err := GenerateInviteToken()
	if err != nil {
		return nil, err
	}

	inv := models.NewInvitation(orgID, email, models.OrgRole(role), token, invitedBy)
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("invitation_id", inv.ID.String()).
		Str("role", role).
		Msg("invitation issued")

	return &IssueResult{
		Invitation: inv,
		AcceptURL:  fmt.Sprintf("%s/accept-invite?token=%s", s.baseURL, token),
	}, nil
}

// Invitations lists an organization's pending invitations.
func (s *Service) Invitations(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	invitations, err := s.store.GetInvitationsByOrgID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// Preview looks up an invitation by token without consuming it, so the
// accept page can show the organization and role before the user commits.
// Expired invitations are reported as ErrInvitationExpired.
func (s *Service) Preview(ctx context.Context, token string) (*models.Invitation, *models.Organization, error) {
	inv, err := s.lookupByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	org, err := s.store.GetOrganizationByID(ctx, inv.OrgID)
	if err != nil {
		return nil, nil, fmt.Errorf("get organization: %w", err)
	}

	return inv, org, nil
}

// AcceptResult reports the outcome of consuming an invitation.
type AcceptResult struct {
	Org           *models.Organization
	Role          models.OrgRole
	AlreadyMember bool
}

// Accept consumes an invitation for the given user. If the user is already
// a member, the existing membership and role are kept and the invitation is
// still consumed. A membership insert failure leaves the invitation intact
// so the user can retry.
func (s *Service) Accept(ctx context.Context, token string, userID uuid.UUID) (*AcceptResult, error) {
	inv, err := s.lookupByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{Role: inv.Role}

	existing, err := s.store.GetMembershipByUserAndOrg(ctx, userID, inv.OrgID)
	switch {
	case err == nil:
		result.AlreadyMember = true
		result.Role = existing.Role
	case errors.Is(err, pgx.ErrNoRows):
		membership := models.NewMembership(userID, inv.OrgID, inv.Role)
		if err := s.store.CreateMembership(ctx, membership); err != nil {
			return nil, fmt.Errorf("create membership: %w", err)
		}
	default:
		return nil, fmt.Errorf("get membership: %w", err)
	}

	if err := s.store.DeleteInvitation(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("consume invitation: %w", err)
	}

	org, err := s.store.GetOrganizationByID(ctx, inv.OrgID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	result.Org = org

	s.logger.Info().
		Str("org_id", inv.OrgID.String()).
		Str("user_id", userID.String()).
		Bool("already_member", result.AlreadyMember).
		Msg("invitation accepted")

	return result, nil
}

// Revoke deletes a pending invitation. The invitation must belong to the
// given organization.
func (s *Service) Revoke(ctx context.Context, orgID, invitationID uuid.UUID) error {
	inv, err := s.store.GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("get invitation: %w", err)
	}
	if inv.OrgID != orgID {
		return ErrInvitationNotFound
	}

	if err := s.store.DeleteInvitation(ctx, inv.ID); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("invitation_id", invitationID.String()).
		Msg("invitation revoked")

	return nil
}

func (s *Service) lookupByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.IsExpired() {
		return nil, ErrInvitationExpired
	}
	return inv, nil
}
