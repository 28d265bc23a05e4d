package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	TenantID           uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Email              string    `json:"email" db:"email"`
	Name               string    `json:"name" db:"name"`
	Phone              *string   `json:"phone,omitempty" db:"phone"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	RoleID             uuid.UUID `json:"role_id" db:"role_id"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	IsVerified         bool      `json:"is_verified" db:"is_verified"`
	MustChangePassword bool      `json:"must_change_password" db:"must_change_password"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}
