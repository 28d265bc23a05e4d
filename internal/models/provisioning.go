package models

import (
	"time"

	"github.com/google/uuid"
)

// ProvisioningState is the value of one provisioning step.
type ProvisioningState string

const (
	ProvisioningPending    ProvisioningState = "pending"
	ProvisioningProcessing ProvisioningState = "processing"
	ProvisioningCompleted  ProvisioningState = "completed"
	ProvisioningFailed     ProvisioningState = "failed"
	ProvisioningSkipped    ProvisioningState = "skipped"
)

// Provisioning step names, used as hash fields.
const (
	StepStorage      = "storage"
	StepSeedData     = "seedData"
	StepBilling      = "billing"
	StepWelcomeEmail = "welcomeEmail"
)

type ProvisioningSteps struct {
	Storage      ProvisioningState `json:"storage"`
	SeedData     ProvisioningState `json:"seedData"`
	Billing      ProvisioningState `json:"billing"`
	WelcomeEmail ProvisioningState `json:"welcomeEmail"`
}

// StepsFromMap fills missing steps with pending.
func StepsFromMap(m map[string]string) ProvisioningSteps {
	get := func(k string) ProvisioningState {
		if v, ok := m[k]; ok && v != "" {
			return ProvisioningState(v)
		}
		return ProvisioningPending
	}
	return ProvisioningSteps{
		Storage:      get(StepStorage),
		SeedData:     get(StepSeedData),
		Billing:      get(StepBilling),
		WelcomeEmail: get(StepWelcomeEmail),
	}
}

type AdminUserSummary struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	MustChangePassword bool      `json:"mustChangePassword"`
}

// ProvisioningStatus is the tenant view returned to the status endpoint.
type ProvisioningStatus struct {
	TenantID       uuid.UUID         `json:"tenantId"`
	CompanyName    string            `json:"companyName"`
	Slug           string            `json:"slug"`
	Status         string            `json:"status"`
	Plan           string            `json:"plan"`
	TrialExpiresAt *time.Time        `json:"trialExpiresAt"`
	CreatedAt      time.Time         `json:"createdAt"`
	Provisioning   ProvisioningSteps `json:"provisioning"`
	AdminUser      *AdminUserSummary `json:"adminUser"`
}
