package models

import (
	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleViewer  = "viewer"
)

type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Permissions []string  `json:"permissions" db:"permissions"`
	IsSystem    bool      `json:"is_system" db:"is_system"`
}

// RoleTemplate describes a role created for every new tenant.
type RoleTemplate struct {
	Name        string
	DisplayName string
	Permissions []string
}

// DefaultRoles is the fixed catalog seeded at tenant creation. The admin
// role is always first.
var DefaultRoles = []RoleTemplate{
	{Name: RoleAdmin, DisplayName: "Administrator", Permissions: []string{"*"}},
	{Name: RoleManager, DisplayName: "Manager", Permissions: []string{
		"users:read", "users:write",
		"inventory:read", "inventory:write",
		"orders:read", "orders:write",
		"reports:read",
	}},
	{Name: RoleStaff, DisplayName: "Staff", Permissions: []string{
		"inventory:read", "orders:read", "orders:write",
	}},
	{Name: RoleViewer, DisplayName: "Viewer", Permissions: []string{
		"inventory:read", "orders:read", "reports:read",
	}},
}
