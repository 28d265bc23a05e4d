package handlers

import (
	"context"
	"net/http"
	"strings"

	"erp-onboarding/internal/common"
	"erp-onboarding/internal/models"

	"github.com/labstack/echo/v4"
)

// JobReader is the read side of the job queue.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
	Pending(ctx context.Context) (int64, error)
}

type JobHandlers struct {
	jobs JobReader
}

func NewJobHandlers(jobs JobReader) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

// GetJob handles GET /api/admin/jobs/:id
func (h *JobHandlers) GetJob(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return common.SendValidationError(c, map[string]string{"id": "is required"})
	}

	job, err := h.jobs.GetJob(c.Request().Context(), id)
	if err != nil {
		return common.SendAppError(c, common.ErrInternal.WithInternal(err))
	}
	if job == nil {
		return common.SendNotFoundError(c, "Job")
	}
	return c.JSON(http.StatusOK, job)
}

// QueueStats handles GET /api/admin/jobs
func (h *JobHandlers) QueueStats(c echo.Context) error {
	pending, err := h.jobs.Pending(c.Request().Context())
	if err != nil {
		return common.SendAppError(c, common.ErrInternal.WithInternal(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"pending": pending})
}
