// Package repository persists leads.
package repository

import (
	"context"
	"errors"

	"fixline_backend/internal/leads/domain"
	"fixline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, description, contact_name, phone, email,
	category, urgency, budget_min, budget_max, location_zip, latitude, longitude,
	requirements, sentiment, quality_score, status, created_at, updated_at`

// Create inserts a pending lead before classification runs.
func (r *Repository) Create(ctx context.Context, lead domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (id, description, contact_name, phone, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, lead.ID, lead.Description, lead.ContactName, lead.Phone, lead.Email, lead.Status)
	return err
}

// SaveClassification writes the classifier's derived attributes.
func (r *Repository) SaveClassification(ctx context.Context, lead domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			category = $2, urgency = $3, budget_min = $4, budget_max = $5,
			location_zip = $6, latitude = $7, longitude = $8,
			requirements = $9, sentiment = $10, quality_score = $11,
			updated_at = now()
		WHERE id = $1
	`, lead.ID, lead.Category, lead.Urgency, lead.BudgetMin, lead.BudgetMax,
		lead.LocationZip, lead.Latitude, lead.Longitude,
		lead.Requirements, lead.Sentiment, lead.QualityScore)
	return err
}

// UpdateStatus advances the lead's lifecycle. Illegal transitions are
// rejected at the service layer; the repository writes what it is told.
func (r *Repository) UpdateStatus(ctx context.Context, leadID uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, leadID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// GetStatus returns only the lead's current status.
func (r *Repository) GetStatus(ctx context.Context, leadID uuid.UUID) (domain.Status, error) {
	var status domain.Status
	err := r.pool.QueryRow(ctx,
		`SELECT status FROM leads WHERE id = $1`, leadID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("lead not found")
	}
	return status, err
}

func (r *Repository) GetByID(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// List returns leads newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *domain.Status, limit, offset int) ([]domain.Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.Description, &lead.ContactName, &lead.Phone, &lead.Email,
		&lead.Category, &lead.Urgency, &lead.BudgetMin, &lead.BudgetMax,
		&lead.LocationZip, &lead.Latitude, &lead.Longitude,
		&lead.Requirements, &lead.Sentiment, &lead.QualityScore,
		&lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
