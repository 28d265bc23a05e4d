package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"erp-onboarding/internal/common"
	"erp-onboarding/internal/jobs"
	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/models"
	"erp-onboarding/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// JobEnqueuer is the part of the job queue used by onboarding.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts jobs.EnqueueOptions) (string, error)
}

type OnboardingService interface {
	CheckIdempotency(ctx context.Context, key string) (*CreateTenantResult, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	CheckCompanyExists(ctx context.Context, name string) (bool, error)
	CreateTenant(ctx context.Context, req *CreateTenantRequest) (*CreateTenantResult, error)
	ResendWelcomeEmail(ctx context.Context, tenantID uuid.UUID, email string) error
	GetProvisioningStatus(ctx context.Context, tenantID uuid.UUID) (*models.ProvisioningStatus, error)
	// Wait blocks until every background task started by CreateTenant has
	// finished.
	Wait()
}

type CreateTenantRequest struct {
	CompanyName    string `json:"companyName" validate:"required,min=2,max=100"`
	AdminEmail     string `json:"adminEmail" validate:"required,email"`
	AdminName      string `json:"adminName" validate:"required,min=2,max=100"`
	AdminPhone     string `json:"adminPhone" validate:"omitempty,max=20"`
	AdminPassword  string `json:"adminPassword" validate:"omitempty,min=8"`
	Plan           string `json:"plan" validate:"omitempty,oneof=trial free"`
	Industry       string `json:"industry" validate:"omitempty,max=50"`
	Timezone       string `json:"timezone" validate:"omitempty,timezone"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,uuid"`
}

type CreateTenantResult struct {
	TenantID          uuid.UUID  `json:"tenantId"`
	AdminUserID       uuid.UUID  `json:"adminUserId"`
	TenantSlug        string     `json:"tenantSlug"`
	TemporaryPassword string     `json:"temporaryPassword,omitempty"`
	PasswordGenerated bool       `json:"passwordGenerated"`
	LoginURL          string     `json:"loginUrl"`
	TrialExpiresAt    *time.Time `json:"trialExpiresAt,omitempty"`

	// Cached marks a replayed result.
	Cached bool `json:"-"`
}

type OnboardingConfig struct {
	FrontendURL    string
	TrialPeriod    time.Duration
	BillingEnabled bool
}

type onboardingService struct {
	db          repositories.Pool
	idempotency *IdempotencyStore
	tracker     ProvisioningTracker
	email       EmailService
	queue       JobEnqueuer
	clock       clockwork.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
	cfg         OnboardingConfig

	tasks sync.WaitGroup
}

func NewOnboardingService(
	db repositories.Pool,
	idempotency *IdempotencyStore,
	tracker ProvisioningTracker,
	email EmailService,
	queue JobEnqueuer,
	clock clockwork.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg OnboardingConfig,
) OnboardingService {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "https://app.bisman.io"
	}
	if cfg.TrialPeriod == 0 {
		cfg.TrialPeriod = 14 * 24 * time.Hour
	}
	return &onboardingService{
		db:          db,
		idempotency: idempotency,
		tracker:     tracker,
		email:       email,
		queue:       queue,
		clock:       clock,
		metrics:     m,
		log:         log.Named("onboarding"),
		cfg:         cfg,
	}
}

func (s *onboardingService) CheckIdempotency(ctx context.Context, key string) (*CreateTenantResult, error) {
	if key == "" {
		return nil, nil
	}
	return s.idempotency.Get(ctx, key)
}

func (s *onboardingService) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	return repositories.NewUserRepo(s.db).ExistsByEmail(ctx, strings.TrimSpace(email))
}

func (s *onboardingService) CheckCompanyExists(ctx context.Context, name string) (bool, error) {
	return repositories.NewTenantRepo(s.db).ExistsByName(ctx, strings.TrimSpace(name))
}

func (s *onboardingService) CreateTenant(ctx context.Context, req *CreateTenantRequest) (*CreateTenantResult, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.AdminEmail = strings.ToLower(strings.TrimSpace(req.AdminEmail))
	req.AdminName = strings.TrimSpace(req.AdminName)
	if req.Plan == "" {
		req.Plan = models.PlanTrial
	}

	if req.IdempotencyKey != "" {
		cached, err := s.CheckIdempotency(ctx, req.IdempotencyKey)
		if err != nil {
			s.log.Warn("idempotency lookup failed, continuing", zap.String("idempotency_key", req.IdempotencyKey), zap.Error(err))
		}
		if cached != nil {
			s.log.Info("returning cached onboarding result", zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("tenant_id", cached.TenantID.String()))
			cached.Cached = true
			return cached, nil
		}
	}

	emailTaken, err := s.CheckEmailExists(ctx, req.AdminEmail)
	if err != nil {
		return nil, common.ErrInternal.WithInternal(fmt.Errorf("check email: %w", err))
	}
	if emailTaken {
		return nil, common.ErrEmailExists
	}
	companyTaken, err := s.CheckCompanyExists(ctx, req.CompanyName)
	if err != nil {
		return nil, common.ErrInternal.WithInternal(fmt.Errorf("check company: %w", err))
	}
	if companyTaken {
		return nil, common.ErrCompanyExists
	}

	plainPassword := req.AdminPassword
	generated := plainPassword == ""
	if generated {
		if plainPassword, err = GenerateTemporaryPassword(); err != nil {
			return nil, common.ErrInternal.WithInternal(fmt.Errorf("generate password: %w", err))
		}
	}
	passwordHash, err := HashPassword(plainPassword)
	if err != nil {
		return nil, common.ErrInternal.WithInternal(fmt.Errorf("hash password: %w", err))
	}

	tenantID := uuid.New()
	slug, err := s.uniqueSlug(ctx, req.CompanyName, tenantID)
	if err != nil {
		return nil, common.ErrInternal.WithInternal(fmt.Errorf("check slug: %w", err))
	}

	now := s.clock.Now().UTC()
	tenant := &models.Tenant{
		ID:        tenantID,
		Name:      req.CompanyName,
		Slug:      slug,
		Plan:      req.Plan,
		Status:    models.TenantStatusActive,
		Settings:  models.DefaultTenantSettings(req.Timezone, req.Industry),
		CreatedAt: now,
	}
	if req.Plan == models.PlanTrial {
		expires := now.Add(s.cfg.TrialPeriod)
		tenant.TrialExpiresAt = &expires
	}

	admin := &models.User{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Email:              req.AdminEmail,
		Name:               req.AdminName,
		PasswordHash:       passwordHash,
		IsActive:           true,
		MustChangePassword: generated,
		CreatedAt:          now,
	}
	if req.AdminPhone != "" {
		phone := req.AdminPhone
		admin.Phone = &phone
	}

	err = repositories.WithinTx(ctx, s.db, func(tx repositories.DBTX) error {
		return s.createTenantRecords(ctx, tx, tenant, admin)
	})
	if err != nil {
		return nil, s.mapCreateError(err)
	}

	result := &CreateTenantResult{
		TenantID:          tenantID,
		AdminUserID:       admin.ID,
		TenantSlug:        slug,
		PasswordGenerated: generated,
		LoginURL:          s.loginURL(slug),
		TrialExpiresAt:    tenant.TrialExpiresAt,
	}
	if generated {
		result.TemporaryPassword = plainPassword
	}

	if req.IdempotencyKey != "" {
		if err := s.idempotency.Put(ctx, req.IdempotencyKey, result); err != nil {
			s.log.Warn("failed to cache onboarding result", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		}
	}

	s.metrics.TenantsCreated.WithLabelValues(req.Plan).Inc()
	s.log.Info("tenant created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("slug", slug),
		zap.String("plan", req.Plan))

	s.startProvisioning(ctx, tenant, admin, plainPassword, generated)

	return result, nil
}

func (s *onboardingService) createTenantRecords(ctx context.Context, tx repositories.DBTX, tenant *models.Tenant, admin *models.User) error {
	if err := repositories.NewTenantRepo(tx).Create(ctx, tenant); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	roleRepo := repositories.NewRoleRepo(tx)
	for i, tmpl := range models.DefaultRoles {
		role := &models.Role{
			ID:          uuid.New(),
			TenantID:    tenant.ID,
			Name:        tmpl.Name,
			DisplayName: tmpl.DisplayName,
			Permissions: tmpl.Permissions,
			IsSystem:    true,
		}
		if err := roleRepo.Create(ctx, role); err != nil {
			return fmt.Errorf("insert role %s: %w", tmpl.Name, err)
		}
		if i == 0 {
			admin.RoleID = role.ID
		}
	}

	if err := repositories.NewUserRepo(tx).Create(ctx, admin); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	usage := &models.TenantUsage{
		TenantID:    tenant.ID,
		UsersCount:  1,
		PeriodStart: tenant.CreatedAt,
	}
	if err := repositories.NewUsageRepo(tx).Create(ctx, usage); err != nil {
		return fmt.Errorf("insert tenant usage: %w", err)
	}

	details, _ := json.Marshal(map[string]any{
		"companyName": tenant.Name,
		"plan":        tenant.Plan,
		"adminEmail":  admin.Email,
	})
	entry := &models.AuditLog{
		TenantID:     tenant.ID,
		UserID:       &admin.ID,
		Action:       models.ActionTenantCreated,
		ResourceType: models.ResourceTenant,
		ResourceID:   tenant.ID.String(),
		Details:      details,
		CreatedAt:    tenant.CreatedAt,
	}
	if err := repositories.NewAuditLogsRepo(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// mapCreateError turns unique violations raised by a concurrent signup into
// the same conflicts the pre-checks report.
func (s *onboardingService) mapCreateError(err error) error {
	if constraint, ok := repositories.UniqueViolation(err); ok {
		switch constraint {
		case repositories.ConstraintUserEmail:
			return common.ErrEmailExists.WithInternal(err)
		case repositories.ConstraintTenantName, repositories.ConstraintTenantSlug:
			return common.ErrCompanyExists.WithInternal(err)
		}
	}
	s.log.Error("tenant creation failed", zap.Error(err))
	return common.ErrInternal.WithInternal(err)
}

func (s *onboardingService) uniqueSlug(ctx context.Context, companyName string, tenantID uuid.UUID) (string, error) {
	suffix := tenantID.String()[:6]
	slug := Slugify(companyName)
	if slug == "" {
		return "tenant-" + suffix, nil
	}
	taken, err := repositories.NewTenantRepo(s.db).SlugExists(ctx, slug)
	if err != nil {
		return "", err
	}
	if taken {
		if len(slug) > maxSlugLength-len(suffix)-1 {
			slug = strings.TrimRight(slug[:maxSlugLength-len(suffix)-1], "-")
		}
		slug = slug + "-" + suffix
	}
	return slug, nil
}

func (s *onboardingService) loginURL(slug string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/login?tenant=" + slug
}

// startProvisioning runs the post-commit side effects detached from the
// request. Their outcome is only visible through the provisioning status.
func (s *onboardingService) startProvisioning(ctx context.Context, tenant *models.Tenant, admin *models.User, password string, generated bool) {
	bg := context.WithoutCancel(ctx)
	tenantID := tenant.ID.String()

	welcome := WelcomeEmailData{
		Name:           admin.Name,
		CompanyName:    tenant.Name,
		Email:          admin.Email,
		LoginURL:       s.loginURL(tenant.Slug),
		TrialExpiresAt: tenant.TrialExpiresAt,
	}
	if generated {
		welcome.TemporaryPassword = password
	}

	s.goBackground("welcome-email", tenantID, func() error {
		return s.sendWelcome(bg, tenantID, admin.Email, welcome)
	})

	s.goBackground("enqueue-provisioning", tenantID, func() error {
		return s.enqueueProvisioning(bg, tenant, admin)
	})
}

func (s *onboardingService) goBackground(task, tenantID string, fn func() error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := fn(); err != nil {
			s.metrics.BackgroundFailures.WithLabelValues(task).Inc()
			s.log.Error("background task failed",
				zap.String("task", task),
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	}()
}

func (s *onboardingService) sendWelcome(ctx context.Context, tenantID, to string, data WelcomeEmailData) error {
	s.tracker.Set(ctx, tenantID, models.StepWelcomeEmail, models.ProvisioningProcessing)

	msg, err := RenderWelcomeEmail(to, data)
	if err == nil {
		err = s.email.Send(ctx, msg)
	}
	if err != nil {
		s.tracker.Set(ctx, tenantID, models.StepWelcomeEmail, models.ProvisioningFailed)
		return fmt.Errorf("send welcome email: %w", err)
	}

	s.tracker.Set(ctx, tenantID, models.StepWelcomeEmail, models.ProvisioningCompleted)
	return nil
}

func (s *onboardingService) enqueueProvisioning(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	tenantID := tenant.ID.String()

	type pending struct {
		jobType string
		step    string
		payload any
	}
	work := []pending{
		{models.JobProvisionStorage, models.StepStorage, models.ProvisionStoragePayload{
			TenantID: tenantID,
			Prefix:   TenantStoragePrefix(tenantID),
		}},
		{models.JobSeedTenantData, models.StepSeedData, models.SeedTenantDataPayload{
			TenantID:    tenantID,
			CompanyName: tenant.Name,
		}},
	}
	if s.cfg.BillingEnabled {
		work = append(work, pending{models.JobCreateStripeCustomer, models.StepBilling, models.CreateStripeCustomerPayload{
			TenantID:    tenantID,
			Email:       admin.Email,
			CompanyName: tenant.Name,
			Plan:        tenant.Plan,
		}})
	} else {
		s.tracker.Set(ctx, tenantID, models.StepBilling, models.ProvisioningSkipped)
	}
	work = append(work, pending{models.JobTrackEvent, "", models.TrackEventPayload{
		Event:    models.EventTenantCreated,
		TenantID: tenantID,
		Properties: map[string]any{
			"plan":     tenant.Plan,
			"industry": tenant.Settings.Industry,
		},
	}})

	var errs []error
	for _, w := range work {
		if _, err := s.queue.Enqueue(ctx, w.jobType, w.payload, jobs.EnqueueOptions{}); err != nil {
			if w.step != "" {
				s.tracker.Set(ctx, tenantID, w.step, models.ProvisioningFailed)
			}
			errs = append(errs, fmt.Errorf("enqueue %s: %w", w.jobType, err))
		}
	}
	return errors.Join(errs...)
}

func (s *onboardingService) ResendWelcomeEmail(ctx context.Context, tenantID uuid.UUID, email string) error {
	tenant, err := repositories.NewTenantRepo(s.db).GetByID(ctx, tenantID)
	if errors.Is(err, repositories.ErrNotFound) {
		return common.ErrTenantNotFound
	}
	if err != nil {
		return common.ErrInternal.WithInternal(fmt.Errorf("load tenant: %w", err))
	}

	users := repositories.NewUserRepo(s.db)
	user, err := users.GetByTenantAndEmail(ctx, tenantID, strings.TrimSpace(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return common.ErrUserNotFound
	}
	if err != nil {
		return common.ErrInternal.WithInternal(fmt.Errorf("load user: %w", err))
	}

	password, err := GenerateTemporaryPassword()
	if err != nil {
		return common.ErrInternal.WithInternal(fmt.Errorf("generate password: %w", err))
	}
	hash, err := HashPassword(password)
	if err != nil {
		return common.ErrInternal.WithInternal(fmt.Errorf("hash password: %w", err))
	}
	if err := users.UpdatePassword(ctx, user.ID, hash, true); err != nil {
		return common.ErrInternal.WithInternal(fmt.Errorf("update password: %w", err))
	}

	msg, err := RenderWelcomeEmail(user.Email, WelcomeEmailData{
		Name:              user.Name,
		CompanyName:       tenant.Name,
		Email:             user.Email,
		TemporaryPassword: password,
		LoginURL:          s.loginURL(tenant.Slug),
		TrialExpiresAt:    tenant.TrialExpiresAt,
	})
	if err == nil {
		err = s.email.Send(ctx, msg)
	}
	if err != nil {
		s.tracker.Set(ctx, tenantID.String(), models.StepWelcomeEmail, models.ProvisioningFailed)
		return common.ErrInternal.WithInternal(fmt.Errorf("send welcome email: %w", err))
	}
	s.tracker.Set(ctx, tenantID.String(), models.StepWelcomeEmail, models.ProvisioningCompleted)

	entry := &models.AuditLog{
		TenantID:     tenantID,
		UserID:       &user.ID,
		Action:       models.ActionWelcomeResent,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID.String(),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := repositories.NewAuditLogsRepo(s.db).Create(ctx, entry); err != nil {
		s.log.Warn("failed to audit welcome resend", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	s.log.Info("welcome email resent", zap.String("tenant_id", tenantID.String()), zap.String("user_id", user.ID.String()))
	return nil
}

// GetProvisioningStatus returns nil, nil for an unknown tenant.
func (s *onboardingService) GetProvisioningStatus(ctx context.Context, tenantID uuid.UUID) (*models.ProvisioningStatus, error) {
	tenant, err := repositories.NewTenantRepo(s.db).GetByID(ctx, tenantID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	steps, err := s.tracker.Get(ctx, tenantID.String())
	if err != nil {
		s.log.Warn("failed to read provisioning state", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	status := &models.ProvisioningStatus{
		TenantID:       tenant.ID,
		CompanyName:    tenant.Name,
		Slug:           tenant.Slug,
		Status:         tenant.Status,
		Plan:           tenant.Plan,
		TrialExpiresAt: tenant.TrialExpiresAt,
		CreatedAt:      tenant.CreatedAt,
		Provisioning:   steps,
	}

	admin, err := repositories.NewUserRepo(s.db).GetTenantAdmin(ctx, tenantID)
	switch {
	case err == nil:
		status.AdminUser = &models.AdminUserSummary{
			ID:                 admin.ID,
			Email:              admin.Email,
			Name:               admin.Name,
			MustChangePassword: admin.MustChangePassword,
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("load tenant admin: %w", err)
	}

	return status, nil
}

func (s *onboardingService) Wait() {
	s.tasks.Wait()
}
