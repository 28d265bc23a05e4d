package repositories

import (
	"context"

	"erp-onboarding/internal/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	GetTenantAdmin(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, mustChange bool) error
}

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, name, phone, password_hash, role_id, is_active, is_verified, must_change_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.TenantID, user.Email, user.Name, user.Phone, user.PasswordHash,
		user.RoleID, user.IsActive, user.IsVerified, user.MustChangePassword, user.CreatedAt)
	return err
}

// ExistsByEmail checks across all tenants; email addresses are global.
func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

func (r *userRepo) GetByTenantAndEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, tenant_id, email, name, phone, role_id, is_active, is_verified, must_change_password, created_at
		FROM users
		WHERE tenant_id = $1 AND LOWER(email) = LOWER($2)
	`
	err := r.db.QueryRow(ctx, query, tenantID, email).Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.Phone,
		&user.RoleID, &user.IsActive, &user.IsVerified, &user.MustChangePassword, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// GetTenantAdmin returns the oldest user holding the admin role.
func (r *userRepo) GetTenantAdmin(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT u.id, u.tenant_id, u.email, u.name, u.phone, u.role_id, u.is_active, u.is_verified, u.must_change_password, u.created_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.tenant_id = $1 AND r.name = 'admin'
		ORDER BY u.created_at
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, tenantID).Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.Phone,
		&user.RoleID, &user.IsActive, &user.IsVerified, &user.MustChangePassword, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, mustChange bool) error {
	query := `UPDATE users SET password_hash = $1, must_change_password = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, passwordHash, mustChange, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
