package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

const trialPeriodDays = 14

type BillingCustomer struct {
	TenantID string
	Email    string
	Name     string
}

// BillingService creates the billing side of a tenant.
type BillingService interface {
	CreateCustomer(ctx context.Context, customer BillingCustomer) (string, error)
	StartTrialSubscription(ctx context.Context, tenantID, customerID string) (string, error)
	TrialEnabled() bool
}

type stripeBillingService struct {
	client       *client.API
	trialPriceID string
	log          *zap.Logger
}

// NewStripeBillingService talks to Stripe. A nil backends uses the default
// Stripe API endpoints.
func NewStripeBillingService(secretKey, trialPriceID string, backends *stripe.Backends, log *zap.Logger) BillingService {
	return &stripeBillingService{
		client:       client.New(secretKey, backends),
		trialPriceID: trialPriceID,
		log:          log.Named("billing.stripe"),
	}
}

func (s *stripeBillingService) CreateCustomer(ctx context.Context, customer BillingCustomer) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(customer.Email),
		Name:  stripe.String(customer.Name),
	}
	params.Context = ctx
	params.AddMetadata("tenant_id", customer.TenantID)
	// A retried job must not create a second customer.
	params.SetIdempotencyKey("tenant-customer-" + customer.TenantID)

	c, err := s.client.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}

	s.log.Info("stripe customer created", zap.String("tenant_id", customer.TenantID), zap.String("customer_id", c.ID))
	return c.ID, nil
}

func (s *stripeBillingService) StartTrialSubscription(ctx context.Context, tenantID, customerID string) (string, error) {
	if s.trialPriceID == "" {
		return "", nil
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(s.trialPriceID)},
		},
		TrialPeriodDays: stripe.Int64(trialPeriodDays),
	}
	params.Context = ctx
	params.AddMetadata("tenant_id", tenantID)
	params.SetIdempotencyKey("tenant-trial-" + tenantID)

	sub, err := s.client.Subscriptions.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe trial subscription: %w", err)
	}

	s.log.Info("stripe trial subscription created", zap.String("tenant_id", tenantID), zap.String("subscription_id", sub.ID))
	return sub.ID, nil
}

func (s *stripeBillingService) TrialEnabled() bool {
	return s.trialPriceID != ""
}
