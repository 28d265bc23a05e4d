package models

// Job types registered by the provisioning handlers.
const (
	JobProvisionStorage     = "provision-storage"
	JobSeedTenantData       = "seed-tenant-data"
	JobCreateStripeCustomer = "create-stripe-customer"
	JobTrackEvent           = "track-event"
	JobTrialReminder        = "trial-expiration-reminder"
)

type ProvisionStoragePayload struct {
	TenantID string `json:"tenantId"`
	Prefix   string `json:"prefix"`
}

type SeedTenantDataPayload struct {
	TenantID    string `json:"tenantId"`
	CompanyName string `json:"companyName"`
}

type CreateStripeCustomerPayload struct {
	TenantID    string `json:"tenantId"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	Plan        string `json:"plan"`
}

type TrackEventPayload struct {
	Event      string         `json:"event"`
	TenantID   string         `json:"tenantId"`
	Properties map[string]any `json:"properties,omitempty"`
}

type TrialReminderPayload struct {
	TenantID      string `json:"tenantId"`
	DaysRemaining int    `json:"daysRemaining"`
}

// EventTenantCreated is tracked once per successful signup.
const EventTenantCreated = "tenant-created"
