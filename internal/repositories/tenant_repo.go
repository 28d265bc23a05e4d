package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erp-onboarding/internal/models"

	"github.com/google/uuid"
)

// Constraint names from the schema, used to map unique violations.
const (
	ConstraintTenantName = "tenants_name_lower_key"
	ConstraintTenantSlug = "tenants_slug_key"
	ConstraintUserEmail  = "users_email_key"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	ListTrialsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("encode tenant settings: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, slug, plan, status, trial_expires_at, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err = r.db.Exec(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.Plan, tenant.Status,
		tenant.TrialExpiresAt, settings, tenant.CreatedAt)
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	var settings []byte
	query := `
		SELECT id, name, slug, plan, status, trial_expires_at, settings, stripe_customer_id, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Plan, &tenant.Status,
		&tenant.TrialExpiresAt, &settings, &tenant.StripeCustomerID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if len(settings) > 0 {
		tenant.Settings = &models.TenantSettings{}
		if err := json.Unmarshal(settings, tenant.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return tenant, nil
}

func (r *tenantRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE LOWER(name) = LOWER($1))`
	err := r.db.QueryRow(ctx, query, name).Scan(&exists)
	return exists, err
}

func (r *tenantRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)`
	err := r.db.QueryRow(ctx, query, slug).Scan(&exists)
	return exists, err
}

func (r *tenantRepo) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `UPDATE tenants SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, customerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRepo) ListTrialsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Tenant, error) {
	query := `
		SELECT id, name, slug, plan, status, trial_expires_at, created_at
		FROM tenants
		WHERE plan = 'trial' AND status = 'active'
		  AND trial_expires_at > $1 AND trial_expires_at <= $2
		ORDER BY trial_expires_at
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Plan, &tenant.Status,
			&tenant.TrialExpiresAt, &tenant.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
