// Package provisioning holds the job handlers that finish setting up a
// tenant after its records are committed.
package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"erp-onboarding/internal/jobs"
	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/models"
	"erp-onboarding/internal/repositories"
	"erp-onboarding/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handlers carries the collaborators of every provisioning job. Billing may
// be nil when no billing provider is configured.
type Handlers struct {
	DB          repositories.DBTX
	Tracker     services.ProvisioningTracker
	Storage     services.StorageService
	Billing     services.BillingService
	Email       services.EmailService
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	FrontendURL string
}

// Register binds every provisioning job type on q.
func (h *Handlers) Register(q *jobs.Queue) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	h.Log = h.Log.Named("provisioning")

	q.Register(models.JobProvisionStorage, h.ProvisionStorage)
	q.Register(models.JobSeedTenantData, h.SeedTenantData)
	q.Register(models.JobCreateStripeCustomer, h.CreateStripeCustomer)
	q.Register(models.JobTrackEvent, h.TrackEvent)
	q.Register(models.JobTrialReminder, h.TrialReminder)
}

// step wraps a handler body with the processing/completed/failed status
// transitions of one provisioning step.
func (h *Handlers) step(ctx context.Context, tenantID, name string, fn func() error) error {
	h.Tracker.Set(ctx, tenantID, name, models.ProvisioningProcessing)
	if err := fn(); err != nil {
		h.Tracker.Set(ctx, tenantID, name, models.ProvisioningFailed)
		return err
	}
	h.Tracker.Set(ctx, tenantID, name, models.ProvisioningCompleted)
	return nil
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func (h *Handlers) ProvisionStorage(ctx context.Context, payload json.RawMessage) error {
	var p models.ProvisionStoragePayload
	if err := decode(payload, &p); err != nil {
		return err
	}

	return h.step(ctx, p.TenantID, models.StepStorage, func() error {
		location, err := h.Storage.ProvisionTenant(ctx, p.TenantID, p.Prefix)
		if err != nil {
			return fmt.Errorf("provision storage: %w", err)
		}
		h.Log.Info("storage ready", zap.String("tenant_id", p.TenantID), zap.String("location", location))
		return nil
	})
}

func (h *Handlers) SeedTenantData(ctx context.Context, payload json.RawMessage) error {
	var p models.SeedTenantDataPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", p.TenantID, err)
	}

	return h.step(ctx, p.TenantID, models.StepSeedData, func() error {
		seeds := repositories.NewSeedRepo(h.DB)

		categories, err := seeds.SeedCategories(ctx, tenantID, models.DefaultCategories)
		if err != nil {
			return err
		}
		warehouses, err := seeds.SeedWarehouse(ctx, tenantID, models.DefaultWarehouse)
		if err != nil {
			return err
		}
		units, err := seeds.SeedUnits(ctx, tenantID, models.DefaultUnits)
		if err != nil {
			return err
		}

		h.Log.Info("tenant data seeded",
			zap.String("tenant_id", p.TenantID),
			zap.Int64("categories", categories),
			zap.Int64("warehouses", warehouses),
			zap.Int64("units", units))
		return nil
	})
}

func (h *Handlers) CreateStripeCustomer(ctx context.Context, payload json.RawMessage) error {
	var p models.CreateStripeCustomerPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	if h.Billing == nil {
		h.Tracker.Set(ctx, p.TenantID, models.StepBilling, models.ProvisioningSkipped)
		h.Log.Info("billing not configured, skipping customer", zap.String("tenant_id", p.TenantID))
		return nil
	}
	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", p.TenantID, err)
	}

	return h.step(ctx, p.TenantID, models.StepBilling, func() error {
		customerID, err := h.Billing.CreateCustomer(ctx, services.BillingCustomer{
			TenantID: p.TenantID,
			Email:    p.Email,
			Name:     p.CompanyName,
		})
		if err != nil {
			return err
		}
		if err := repositories.NewTenantRepo(h.DB).SetStripeCustomerID(ctx, tenantID, customerID); err != nil {
			return fmt.Errorf("store stripe customer id: %w", err)
		}

		if p.Plan == models.PlanTrial && h.Billing.TrialEnabled() {
			if _, err := h.Billing.StartTrialSubscription(ctx, p.TenantID, customerID); err != nil {
				return err
			}
		}
		return nil
	})
}

// TrackEvent never fails the job; analytics are best effort.
func (h *Handlers) TrackEvent(ctx context.Context, payload json.RawMessage) error {
	var p models.TrackEventPayload
	if err := decode(payload, &p); err != nil {
		h.Log.Warn("dropping malformed event", zap.Error(err))
		return nil
	}

	h.Metrics.Events.WithLabelValues(p.Event).Inc()

	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		h.Log.Warn("event without valid tenant", zap.String("event", p.Event), zap.String("tenant_id", p.TenantID))
		return nil
	}

	details, _ := json.Marshal(p.Properties)
	entry := &models.AuditLog{
		TenantID:     tenantID,
		Action:       eventAction(p.Event),
		ResourceType: models.ResourceSystem,
		ResourceID:   p.TenantID,
		Details:      details,
	}
	if err := repositories.NewAuditLogsRepo(h.DB).Create(ctx, entry); err != nil {
		h.Log.Warn("failed to record event", zap.String("event", p.Event), zap.String("tenant_id", p.TenantID), zap.Error(err))
		return nil
	}
	h.Log.Debug("event tracked", zap.String("event", p.Event), zap.String("tenant_id", p.TenantID))
	return nil
}

// eventAction turns "tenant-created" into "TENANT_CREATED".
func eventAction(event string) string {
	return strings.ReplaceAll(strings.ToUpper(event), "-", "_")
}

func (h *Handlers) TrialReminder(ctx context.Context, payload json.RawMessage) error {
	var p models.TrialReminderPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	tenantID, err := uuid.Parse(p.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", p.TenantID, err)
	}

	tenant, err := repositories.NewTenantRepo(h.DB).GetByID(ctx, tenantID)
	if errors.Is(err, repositories.ErrNotFound) {
		h.Log.Warn("trial reminder for unknown tenant", zap.String("tenant_id", p.TenantID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Plan != models.PlanTrial {
		return nil
	}

	admin, err := repositories.NewUserRepo(h.DB).GetTenantAdmin(ctx, tenantID)
	if errors.Is(err, repositories.ErrNotFound) {
		h.Log.Warn("trial tenant has no admin", zap.String("tenant_id", p.TenantID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load tenant admin: %w", err)
	}

	msg, err := services.RenderTrialReminderEmail(admin.Email, services.TrialReminderData{
		Name:          admin.Name,
		CompanyName:   tenant.Name,
		DaysRemaining: p.DaysRemaining,
		BillingURL:    strings.TrimRight(h.FrontendURL, "/") + "/billing",
	})
	if err != nil {
		return err
	}
	if err := h.Email.Send(ctx, msg); err != nil {
		return fmt.Errorf("send trial reminder: %w", err)
	}

	h.Log.Info("trial reminder sent", zap.String("tenant_id", p.TenantID), zap.Int("days_remaining", p.DaysRemaining))
	return nil
}
