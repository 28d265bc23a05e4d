package handlers

import (
	"context"
	"net/http"
	"time"

	"erp-onboarding/internal/caching"
	"erp-onboarding/internal/repositories"
	"erp-onboarding/internal/services"

	"github.com/labstack/echo/v4"
)

const checkTimeout = 3 * time.Second

// SchedulerStatus reports the recurring jobs of the background scheduler.
type SchedulerStatus interface {
	GetJobStatus() map[string]any
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db        repositories.DBTX
	cache     caching.CacheService
	storage   services.StorageService
	scheduler SchedulerStatus
	started   time.Time
}

// NewHealthHandlers builds the health endpoints. scheduler may be nil.
func NewHealthHandlers(db repositories.DBTX, cache caching.CacheService, storage services.StorageService, scheduler SchedulerStatus) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		cache:     cache,
		storage:   storage,
		scheduler: scheduler,
		started:   time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Scheduler map[string]any    `json:"scheduler,omitempty"`
	Uptime    string            `json:"uptime"`
}

// HealthCheck reports every dependency and degrades to 206 when any of
// them is unhealthy.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	checks := map[string]func(context.Context) error{
		"database": h.checkDatabase,
		"cache":    h.cache.Ping,
		"storage":  h.storage.Ping,
	}
	for name, check := range checks {
		if err := check(ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
		} else {
			health.Services[name] = "healthy"
		}
	}

	if h.scheduler != nil {
		health.Scheduler = h.scheduler.GetJobStatus()
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) checkDatabase(ctx context.Context) error {
	_, err := h.db.Exec(ctx, "SELECT 1")
	return err
}

// ReadinessCheck fails only when the database is unreachable; the cache
// and the job store degrade to memory.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	if err := h.checkDatabase(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Critical services unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
