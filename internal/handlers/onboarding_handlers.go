package handlers

import (
	"net/http"
	"time"

	"erp-onboarding/internal/common"
	"erp-onboarding/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OnboardingHandlers serves the public signup endpoints.
type OnboardingHandlers struct {
	service services.OnboardingService
	// exposePassword echoes generated passwords back to the caller. Never
	// enabled in production.
	exposePassword bool
	log            *zap.Logger
}

func NewOnboardingHandlers(service services.OnboardingService, exposePassword bool, log *zap.Logger) *OnboardingHandlers {
	return &OnboardingHandlers{
		service:        service,
		exposePassword: exposePassword,
		log:            log.Named("handlers.onboarding"),
	}
}

type CreateTenantResponse struct {
	Success           bool       `json:"success"`
	TenantID          uuid.UUID  `json:"tenantId"`
	AdminUserID       uuid.UUID  `json:"adminUserId"`
	TenantSlug        string     `json:"tenantSlug"`
	LoginURL          string     `json:"loginUrl"`
	Message           string     `json:"message"`
	PasswordSet       bool       `json:"passwordSet"`
	TemporaryPassword string     `json:"temporaryPassword,omitempty"`
	TrialExpiresAt    *time.Time `json:"trialExpiresAt,omitempty"`
}

// CreateTenant handles POST /api/onboard
func (h *OnboardingHandlers) CreateTenant(c echo.Context) error {
	var req services.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, map[string]string{"body": "must be a valid JSON object"})
	}
	if err := c.Validate(&req); err != nil {
		return common.SendValidationError(c, ValidationDetails(err))
	}

	result, err := h.service.CreateTenant(c.Request().Context(), &req)
	if err != nil {
		h.log.Warn("onboarding failed", zap.String("company", req.CompanyName), zap.Error(err))
		return common.SendAppError(c, err)
	}

	resp := CreateTenantResponse{
		Success:        true,
		TenantID:       result.TenantID,
		AdminUserID:    result.AdminUserID,
		TenantSlug:     result.TenantSlug,
		LoginURL:       result.LoginURL,
		PasswordSet:    !result.PasswordGenerated,
		TrialExpiresAt: result.TrialExpiresAt,
	}
	if result.PasswordGenerated {
		resp.Message = "Tenant created successfully. Check your email for login instructions."
		if h.exposePassword {
			resp.TemporaryPassword = result.TemporaryPassword
		}
	} else {
		resp.Message = "Account created successfully. You can login now with your credentials."
	}

	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	return c.JSON(status, resp)
}

type checkEmailQuery struct {
	Email string `query:"email" json:"email" validate:"required,email"`
}

// CheckEmail handles GET /api/onboard/check-email
func (h *OnboardingHandlers) CheckEmail(c echo.Context) error {
	var q checkEmailQuery
	if err := c.Bind(&q); err != nil {
		return common.SendValidationError(c, map[string]string{"email": "is required"})
	}
	if err := c.Validate(&q); err != nil {
		return common.SendValidationError(c, ValidationDetails(err))
	}

	exists, err := h.service.CheckEmailExists(c.Request().Context(), q.Email)
	if err != nil {
		h.log.Error("check email failed", zap.Error(err))
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"available": !exists,
		"email":     q.Email,
	})
}

type checkCompanyQuery struct {
	Name string `query:"name" json:"name" validate:"required,min=2,max=100"`
}

// CheckCompany handles GET /api/onboard/check-company
func (h *OnboardingHandlers) CheckCompany(c echo.Context) error {
	var q checkCompanyQuery
	if err := c.Bind(&q); err != nil {
		return common.SendValidationError(c, map[string]string{"name": "is required"})
	}
	if err := c.Validate(&q); err != nil {
		return common.SendValidationError(c, ValidationDetails(err))
	}

	exists, err := h.service.CheckCompanyExists(c.Request().Context(), q.Name)
	if err != nil {
		h.log.Error("check company failed", zap.Error(err))
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"available":   !exists,
		"companyName": q.Name,
	})
}

type ResendWelcomeRequest struct {
	TenantID string `json:"tenantId" validate:"required,uuid"`
	Email    string `json:"email" validate:"required,email"`
}

// ResendWelcome handles POST /api/onboard/resend-welcome
func (h *OnboardingHandlers) ResendWelcome(c echo.Context) error {
	var req ResendWelcomeRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, map[string]string{"body": "must be a valid JSON object"})
	}
	if err := c.Validate(&req); err != nil {
		return common.SendValidationError(c, ValidationDetails(err))
	}

	// Already validated as a UUID.
	tenantID := uuid.MustParse(req.TenantID)
	if err := h.service.ResendWelcomeEmail(c.Request().Context(), tenantID, req.Email); err != nil {
		return common.SendAppError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome email resent successfully",
	})
}

// GetStatus handles GET /api/onboard/status/:tenantId
func (h *OnboardingHandlers) GetStatus(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("tenantId"), "tenantId")
	if err != nil {
		return common.SendValidationError(c, map[string]string{"tenantId": err.Error()})
	}

	status, err := h.service.GetProvisioningStatus(c.Request().Context(), tenantID)
	if err != nil {
		h.log.Error("get provisioning status failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return common.SendAppError(c, err)
	}
	if status == nil {
		return common.SendNotFoundError(c, "Tenant")
	}
	return c.JSON(http.StatusOK, status)
}
