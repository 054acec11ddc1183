package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/handout-labs/handout/internal/models"
)

// Membership methods

// CreateMembership inserts a new membership. The (user_id, org_id) pair is
// unique; a duplicate insert fails with a constraint violation.
func (db *DB) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO memberships (id, user_id, org_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, m.OrgID, m.Role, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// GetMembershipByUserAndOrg returns the membership for a (user, org) pair.
func (db *DB) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	var role string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, org_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`, userID, orgID).Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	m.Role = models.OrgRole(role)
	return &m, nil
}

// GetMembershipsByUserID returns all memberships for a user, ordered by
// creation time so default organization selection is deterministic.
func (db *DB) GetMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, org_id, role, created_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get memberships by user: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		var m models.Membership
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Role = models.OrgRole(role)
		memberships = append(memberships, &m)
	}

	return memberships, rows.Err()
}

// GetMembershipsByOrgID returns an organization's members with user details.
func (db *DB) GetMembershipsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.MembershipWithUser, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT m.id, m.user_id, m.org_id, m.role, u.email, u.name, m.created_at
		FROM memberships m
		JOIN users u ON m.user_id = u.id
		WHERE m.org_id = $1
		ORDER BY m.created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("get memberships by org: %w", err)
	}
	defer rows.Close()

	var members []*models.MembershipWithUser
	for rows.Next() {
		var m models.MembershipWithUser
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.Email, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership with user: %w", err)
		}
		m.Role = models.OrgRole(role)
		members = append(members, &m)
	}

	return members, rows.Err()
}

// DeleteMembership deletes the membership for a (user, org) pair.
func (db *DB) DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	result, err := db.Pool.Exec(ctx, `
		DELETE FROM memberships WHERE user_id = $1 AND org_id = $2
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership not found")
	}
	return nil
}

// CountAdminsByOrgID returns the number of admin memberships in an organization.
func (db *DB) CountAdminsByOrgID(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE org_id = $1 AND role = 'admin'
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

// Invitation methods

// CreateInvitation inserts a new invitation.
func (db *DB) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO invitations (id, org_id, email, role, token, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.OrgID, inv.Email, inv.Role, inv.Token, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// GetInvitationByToken returns an invitation by its opaque token.
func (db *DB) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	var role string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, email, role, token, invited_by, expires_at, created_at
		FROM invitations
		WHERE token = $1
	`, token).Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &inv.Token, &inv.InvitedBy,
		&inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invitation by token: %w", err)
	}
	inv.Role = models.OrgRole(role)
	return &inv, nil
}

// GetInvitationByID returns an invitation by ID.
func (db *DB) GetInvitationByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	var role string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, email, role, token, invited_by, expires_at, created_at
		FROM invitations
		WHERE id = $1
	`, id).Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &inv.Token, &inv.InvitedBy,
		&inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invitation by id: %w", err)
	}
	inv.Role = models.OrgRole(role)
	return &inv, nil
}

// GetInvitationsByOrgID returns an organization's pending invitations,
// newest first.
func (db *DB) GetInvitationsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, email, role, token, invited_by, expires_at, created_at
		FROM invitations
		WHERE org_id = $1
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("get invitations by org: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		var inv models.Invitation
		var role string
		err := rows.Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &inv.Token, &inv.InvitedBy,
			&inv.ExpiresAt, &inv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		inv.Role = models.OrgRole(role)
		invitations = append(invitations, &inv)
	}

	return invitations, rows.Err()
}

// DeleteInvitation deletes an invitation. Consumption and revocation both
// end here: a deleted invitation can never be replayed.
func (db *DB) DeleteInvitation(ctx context.Context, id uuid.UUID) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invitation not found")
	}
	return nil
}

// DeleteExpiredInvitations removes invitations past their expiry.
func (db *DB) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := db.Pool.Exec(ctx, `DELETE FROM invitations WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	return result.RowsAffected(), nil
}
