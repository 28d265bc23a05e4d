package repositories

import (
	"context"
	"time"

	"erp-onboarding/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Create a new audit log entry
	Create(ctx context.Context, auditLog *models.AuditLog) error
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.CreatedAt.IsZero() {
		auditLog.CreatedAt = time.Now()
	}
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	var details any
	if len(auditLog.Details) > 0 {
		details = []byte(auditLog.Details)
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, auditLog.ID, auditLog.TenantID, auditLog.UserID, auditLog.Action,
		auditLog.ResourceType, auditLog.ResourceID, details, auditLog.CreatedAt)
	return err
}
