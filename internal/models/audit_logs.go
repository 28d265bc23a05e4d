package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog represents an audit trail entry for a tenant
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TenantID     uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       string          `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"`
	ResourceID   string          `json:"resource_id" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	ActionTenantCreated = "TENANT_CREATED"
	ActionWelcomeResent = "WELCOME_EMAIL_RESENT"
)

const (
	ResourceTenant = "tenant"
	ResourceUser   = "user"
	ResourceSystem = "system"
)
