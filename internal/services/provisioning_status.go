package services

import (
	"context"

	"erp-onboarding/internal/caching"
	"erp-onboarding/internal/models"

	"go.uber.org/zap"
)

// ProvisioningTracker records the state of each provisioning step in a
// per tenant hash.
type ProvisioningTracker interface {
	Set(ctx context.Context, tenantID, step string, state models.ProvisioningState)
	Get(ctx context.Context, tenantID string) (models.ProvisioningSteps, error)
}

type provisioningTracker struct {
	cache caching.CacheService
	log   *zap.Logger
}

func NewProvisioningTracker(cache caching.CacheService, log *zap.Logger) ProvisioningTracker {
	return &provisioningTracker{cache: cache, log: log.Named("provisioning")}
}

func provisioningKey(tenantID string) string {
	return "tenant:" + tenantID + ":provisioning"
}

// Set never fails the caller; a lost status write only affects reporting.
func (t *provisioningTracker) Set(ctx context.Context, tenantID, step string, state models.ProvisioningState) {
	if err := t.cache.HSet(ctx, provisioningKey(tenantID), step, string(state)); err != nil {
		t.log.Warn("failed to record provisioning state",
			zap.String("tenant_id", tenantID),
			zap.String("step", step),
			zap.String("state", string(state)),
			zap.Error(err))
	}
}

func (t *provisioningTracker) Get(ctx context.Context, tenantID string) (models.ProvisioningSteps, error) {
	fields, err := t.cache.HGetAll(ctx, provisioningKey(tenantID))
	if err != nil {
		return models.StepsFromMap(nil), err
	}
	return models.StepsFromMap(fields), nil
}
