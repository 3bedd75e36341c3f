// Package repository provides read access to registered service businesses.
// Businesses are mutated only by the excluded business-management surface;
// this core treats them as read-only.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Business is a registered service provider.
type Business struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Phone              string
	Categories         []string
	PostalCode         string
	Latitude           float64
	Longitude          float64
	PricingTier        string
	Rating             float64
	Active             bool
	EmergencyCapable   bool
	Licensed           bool
	Insured            bool
	AvgResponseMinutes int
}

// Repository reads businesses from the relational store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a business repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindActiveByCategory returns all active businesses offering the given
// service category. Ordering is left to the matcher, which ranks by
// confidence.
func (r *Repository) FindActiveByCategory(ctx context.Context, category string) ([]Business, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, categories, postal_code, latitude, longitude,
			pricing_tier, rating, active, emergency_capable, licensed, insured,
			avg_response_minutes
		FROM businesses
		WHERE active = true AND $1 = ANY(categories)
		ORDER BY id
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	businesses := make([]Business, 0)
	for rows.Next() {
		var b Business
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Email, &b.Phone, &b.Categories, &b.PostalCode,
			&b.Latitude, &b.Longitude, &b.PricingTier, &b.Rating, &b.Active,
			&b.EmergencyCapable, &b.Licensed, &b.Insured, &b.AvgResponseMinutes,
		); err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return businesses, nil
}

// GetByID returns one business.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Business, error) {
	var b Business
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, categories, postal_code, latitude, longitude,
			pricing_tier, rating, active, emergency_capable, licensed, insured,
			avg_response_minutes
		FROM businesses
		WHERE id = $1
	`, id).Scan(
		&b.ID, &b.Name, &b.Email, &b.Phone, &b.Categories, &b.PostalCode,
		&b.Latitude, &b.Longitude, &b.PricingTier, &b.Rating, &b.Active,
		&b.EmergencyCapable, &b.Licensed, &b.Insured, &b.AvgResponseMinutes,
	)
	return b, err
}
