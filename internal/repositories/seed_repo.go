package repositories

import (
	"context"
	"fmt"

	"erp-onboarding/internal/models"

	"github.com/google/uuid"
)

// SeedRepository inserts tenant starter data. Every insert ignores rows that
// already exist so a retried seed never duplicates data.
type SeedRepository interface {
	SeedCategories(ctx context.Context, tenantID uuid.UUID, categories []models.SeedCategory) (int64, error)
	SeedWarehouse(ctx context.Context, tenantID uuid.UUID, warehouse models.SeedWarehouse) (int64, error)
	SeedUnits(ctx context.Context, tenantID uuid.UUID, units []models.SeedUnit) (int64, error)
}

type seedRepo struct {
	db DBTX
}

func NewSeedRepo(db DBTX) SeedRepository {
	return &seedRepo{db: db}
}

func (r *seedRepo) SeedCategories(ctx context.Context, tenantID uuid.UUID, categories []models.SeedCategory) (int64, error) {
	query := `
		INSERT INTO categories (id, tenant_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tenant_id, name) DO NOTHING
	`
	var inserted int64
	for _, c := range categories {
		tag, err := r.db.Exec(ctx, query, uuid.New(), tenantID, c.Name, c.Description)
		if err != nil {
			return inserted, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (r *seedRepo) SeedWarehouse(ctx context.Context, tenantID uuid.UUID, warehouse models.SeedWarehouse) (int64, error) {
	query := `
		INSERT INTO warehouses (id, tenant_id, name, code, is_default, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		ON CONFLICT (tenant_id, code) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, uuid.New(), tenantID, warehouse.Name, warehouse.Code)
	if err != nil {
		return 0, fmt.Errorf("seed warehouse %q: %w", warehouse.Code, err)
	}
	return tag.RowsAffected(), nil
}

func (r *seedRepo) SeedUnits(ctx context.Context, tenantID uuid.UUID, units []models.SeedUnit) (int64, error) {
	query := `
		INSERT INTO units (id, tenant_id, name, code, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tenant_id, code) DO NOTHING
	`
	var inserted int64
	for _, u := range units {
		tag, err := r.db.Exec(ctx, query, uuid.New(), tenantID, u.Name, u.Code)
		if err != nil {
			return inserted, fmt.Errorf("seed unit %q: %w", u.Code, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
