package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/handout-labs/handout/internal/models"
)

// Template methods

// CreateTemplate inserts a new template.
func (db *DB) CreateTemplate(ctx context.Context, t *models.Template) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO templates (id, org_id, name, ticket_type, start_time, tickets_per_period, num_periods, additional_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.OrgID, t.Name, t.TicketType, t.StartTime, t.TicketsPerPeriod, t.NumPeriods,
		t.AdditionalInfo, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetTemplateByID returns a template by ID.
func (db *DB) GetTemplateByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var t models.Template
	var ticketType string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, ticket_type, start_time, tickets_per_period, num_periods, additional_info, created_at, updated_at
		FROM templates
		WHERE id = $1
	`, id).Scan(&t.ID, &t.OrgID, &t.Name, &ticketType, &t.StartTime, &t.TicketsPerPeriod,
		&t.NumPeriods, &t.AdditionalInfo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get template by id: %w", err)
	}
	t.TicketType = models.TicketType(ticketType)
	return &t, nil
}

// GetTemplatesByOrgID returns an organization's templates, oldest first.
func (db *DB) GetTemplatesByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.Template, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, ticket_type, start_time, tickets_per_period, num_periods, additional_info, created_at, updated_at
		FROM templates
		WHERE org_id = $1
		ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("get templates by org: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		var t models.Template
		var ticketType string
		err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &ticketType, &t.StartTime, &t.TicketsPerPeriod,
			&t.NumPeriods, &t.AdditionalInfo, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.TicketType = models.TicketType(ticketType)
		templates = append(templates, &t)
	}

	return templates, rows.Err()
}

// UpdateTemplate updates a template's editable fields.
func (db *DB) UpdateTemplate(ctx context.Context, t *models.Template) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE templates
		SET name = $2, ticket_type = $3, start_time = $4, tickets_per_period = $5, num_periods = $6, additional_info = $7, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Name, t.TicketType, t.StartTime, t.TicketsPerPeriod, t.NumPeriods, t.AdditionalInfo)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("template not found")
	}
	return nil
}

// DeleteTemplate deletes a template. Dependent sessions are removed by the
// schema's ON DELETE CASCADE.
func (db *DB) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("template not found")
	}
	return nil
}
