package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanTrial = "trial"
	PlanFree  = "free"

	TenantStatusActive = "active"
)

type Tenant struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Slug             string          `json:"slug" db:"slug"`
	Plan             string          `json:"plan" db:"plan"`
	Status           string          `json:"status" db:"status"`
	TrialExpiresAt   *time.Time      `json:"trial_expires_at,omitempty" db:"trial_expires_at"`
	Settings         *TenantSettings `json:"settings" db:"settings"`
	StripeCustomerID *string         `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// TenantSettings is stored as jsonb on the tenant row.
type TenantSettings struct {
	Timezone      string               `json:"timezone"`
	DateFormat    string               `json:"dateFormat"`
	Currency      string               `json:"currency"`
	Language      string               `json:"language"`
	Notifications NotificationSettings `json:"notifications"`
	Features      FeatureFlags         `json:"features"`
	Industry      string               `json:"industry,omitempty"`
}

type NotificationSettings struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

type FeatureFlags struct {
	Chat      bool `json:"chat"`
	Inventory bool `json:"inventory"`
	Orders    bool `json:"orders"`
	Reports   bool `json:"reports"`
	Billing   bool `json:"billing"`
}

// DefaultTenantSettings returns the settings every new tenant starts with.
func DefaultTenantSettings(timezone, industry string) *TenantSettings {
	if timezone == "" {
		timezone = "UTC"
	}
	return &TenantSettings{
		Timezone:   timezone,
		DateFormat: "YYYY-MM-DD",
		Currency:   "INR",
		Language:   "en",
		Notifications: NotificationSettings{
			Email: true,
			SMS:   false,
			Push:  true,
		},
		Features: FeatureFlags{
			Chat:      true,
			Inventory: true,
			Orders:    true,
			Reports:   true,
			Billing:   false,
		},
		Industry: industry,
	}
}

// TenantUsage tracks per-tenant consumption for the current billing period.
type TenantUsage struct {
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UsersCount   int       `json:"users_count" db:"users_count"`
	StorageBytes int64     `json:"storage_bytes" db:"storage_bytes"`
	APICalls     int64     `json:"api_calls" db:"api_calls"`
	PeriodStart  time.Time `json:"period_start" db:"period_start"`
}
