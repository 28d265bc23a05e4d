package repositories

import (
	"context"

	"erp-onboarding/internal/models"
)

type UsageRepository interface {
	Create(ctx context.Context, usage *models.TenantUsage) error
}

type usageRepo struct {
	db DBTX
}

func NewUsageRepo(db DBTX) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Create(ctx context.Context, usage *models.TenantUsage) error {
	query := `
		INSERT INTO tenant_usage (tenant_id, users_count, storage_bytes, api_calls, period_start)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, usage.TenantID, usage.UsersCount, usage.StorageBytes, usage.APICalls, usage.PeriodStart)
	return err
}
