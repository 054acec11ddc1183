package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/handout-labs/handout/internal/models"
)

// Session methods

// CreateSession inserts a new session.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO sessions (id, template_id, date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.TemplateID, s.Date, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionByID returns a session by ID.
func (db *DB) GetSessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	var status string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, template_id, date, status, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.TemplateID, &s.Date, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	s.Status = models.SessionStatus(status)
	return &s, nil
}

// GetSessionWithTemplate returns a session joined with its owning template so
// callers can check org scope without a second query.
func (db *DB) GetSessionWithTemplate(ctx context.Context, id uuid.UUID) (*models.SessionWithTemplate, error) {
	var s models.SessionWithTemplate
	var status, ticketType string
	err := db.Pool.QueryRow(ctx, `
		SELECT s.id, s.template_id, s.date, s.status, s.created_at, s.updated_at,
		       t.name, t.ticket_type, t.start_time, t.org_id
		FROM sessions s
		JOIN templates t ON t.id = s.template_id
		WHERE s.id = $1
	`, id).Scan(&s.ID, &s.TemplateID, &s.Date, &status, &s.CreatedAt, &s.UpdatedAt,
		&s.TemplateName, &ticketType, &s.StartTime, &s.OrgID)
	if err != nil {
		return nil, fmt.Errorf("get session with template: %w", err)
	}
	s.Status = models.SessionStatus(status)
	s.TicketType = models.TicketType(ticketType)
	return &s, nil
}

// GetSessionsByOrgID returns all sessions for an organization, joined with
// their templates, soonest first.
func (db *DB) GetSessionsByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.SessionWithTemplate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.template_id, s.date, s.status, s.created_at, s.updated_at,
		       t.name, t.ticket_type, t.start_time, t.org_id
		FROM sessions s
		JOIN templates t ON t.id = s.template_id
		WHERE t.org_id = $1
		ORDER BY s.date
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("get sessions by org: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SessionWithTemplate
	for rows.Next() {
		var s models.SessionWithTemplate
		var status, ticketType string
		err := rows.Scan(&s.ID, &s.TemplateID, &s.Date, &status, &s.CreatedAt, &s.UpdatedAt,
			&s.TemplateName, &ticketType, &s.StartTime, &s.OrgID)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Status = models.SessionStatus(status)
		s.TicketType = models.TicketType(ticketType)
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// GetPublicSessions returns all active upcoming sessions across every
// organization, with template and organization details embedded, soonest
// first.
func (db *DB) GetPublicSessions(ctx context.Context) ([]*models.PublicSession, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.date,
		       t.name, t.ticket_type, t.start_time, t.tickets_per_period, t.num_periods, t.additional_info,
		       o.id, o.name, o.city, o.state, o.website
		FROM sessions s
		JOIN templates t ON t.id = s.template_id
		JOIN organizations o ON o.id = t.org_id
		WHERE s.status = 'active' AND s.date >= CURRENT_DATE
		ORDER BY s.date, o.name
	`)
	if err != nil {
		return nil, fmt.Errorf("get public sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.PublicSession
	for rows.Next() {
		var s models.PublicSession
		var ticketType string
		err := rows.Scan(&s.ID, &s.Date,
			&s.TemplateName, &ticketType, &s.StartTime, &s.TicketsPerPeriod, &s.NumPeriods, &s.AdditionalInfo,
			&s.OrgID, &s.OrgName, &s.OrgCity, &s.OrgState, &s.OrgWebsite)
		if err != nil {
			return nil, fmt.Errorf("scan public session: %w", err)
		}
		s.TicketType = models.TicketType(ticketType)
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// UpdateSessionStatus sets a session's status.
func (db *DB) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE sessions SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

// DeleteSession deletes a session.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

// MarkPastSessionsCompleted flips active sessions whose date has passed to
// completed. Returns the number of sessions updated.
func (db *DB) MarkPastSessionsCompleted(ctx context.Context) (int64, error) {
	result, err := db.Pool.Exec(ctx, `
		UPDATE sessions SET status = 'completed', updated_at = NOW()
		WHERE status = 'active' AND date < CURRENT_DATE
	`)
	if err != nil {
		return 0, fmt.Errorf("mark past sessions completed: %w", err)
	}
	return result.RowsAffected(), nil
}
