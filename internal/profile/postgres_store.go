package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByTenant(ctx context.Context, tenantID string) (*BusinessProfile, error) {
	query := `
		SELECT tenant_id, display_name, gender, country, business_name, business_type,
		       target_audience, brand_voice, products, value_proposition, custom_instructions
		FROM business_profiles
		WHERE tenant_id = $1
	`

	var p BusinessProfile
	err := s.db.QueryRow(ctx, query, tenantID).Scan(
		&p.TenantID, &p.DisplayName, &p.Gender, &p.Country, &p.BusinessName, &p.BusinessType,
		&p.TargetAudience, &p.BrandVoice, &p.Products, &p.ValueProposition, &p.CustomInstructions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business profile: %w", err)
	}

	return &p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p *BusinessProfile) error {
	query := `
		INSERT INTO business_profiles (
			tenant_id, display_name, gender, country, business_name, business_type,
			target_audience, brand_voice, products, value_proposition, custom_instructions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			gender = EXCLUDED.gender,
			country = EXCLUDED.country,
			business_name = EXCLUDED.business_name,
			business_type = EXCLUDED.business_type,
			target_audience = EXCLUDED.target_audience,
			brand_voice = EXCLUDED.brand_voice,
			products = EXCLUDED.products,
			value_proposition = EXCLUDED.value_proposition,
			custom_instructions = EXCLUDED.custom_instructions
	`
	_, err := s.db.Exec(ctx, query,
		p.TenantID, p.DisplayName, p.Gender, p.Country, p.BusinessName, p.BusinessType,
		p.TargetAudience, p.BrandVoice, p.Products, p.ValueProposition, p.CustomInstructions,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert business profile: %w", err)
	}

	return nil
}
