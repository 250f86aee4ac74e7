package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/model"
	"termivoxed-billing/internal/repository"
)

var (
	ErrNoRecurringPlan   = errors.New("no recurring plan configured for this option, use one-time payment instead")
	ErrAlreadySubscribed = errors.New("an active subscription already exists for this account")
)

// Cap on how many charges the gateway is pre-authorized to attempt, not
// the subscription's actual duration: up to 10 years at monthly cadence,
// up to 1 year of yearly renewals.
const (
	totalCountMonthly = 120
	totalCountYearly  = 12
)

const defaultCustomerName = "TermiVoxed User"

// SubscriptionCheckout carries the gateway-hosted checkout page the
// browser must be redirected to.
type SubscriptionCheckout struct {
	SubscriptionID string `json:"subscriptionId"`
	ShortURL       string `json:"shortUrl"`
}

type SubscriptionStatus struct {
	Plan          string     `json:"plan"`
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	BillingPeriod string     `json:"billingPeriod"`
}

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, uid string, planID string, billingPeriod string) (*SubscriptionCheckout, error)
	GetSubscriptionStatus(ctx context.Context, uid string) (*SubscriptionStatus, error)
}

type DefaultSubscriptionService struct {
	catalog          *catalog.Catalog
	gateway          PaymentGateway
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository

	now func() time.Time
}

func NewSubscriptionService(
	catalog *catalog.Catalog,
	gateway PaymentGateway,
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
) *DefaultSubscriptionService {
	return &DefaultSubscriptionService{
		catalog:          catalog,
		gateway:          gateway,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		now:              time.Now,
	}
}

// CreateSubscription validates the plan selection, resolves (creating if
// absent) the gateway customer for the user, creates the recurring
// subscription and persists the local record with whatever status the
// gateway reported.
func (s *DefaultSubscriptionService) CreateSubscription(ctx context.Context, uid string, planID string, billingPeriod string) (*SubscriptionCheckout, error) {
	plan, err := s.catalog.Lookup(planID)
	if err != nil {
		return nil, err
	}

	pricing, err := plan.Pricing(billingPeriod)
	if err != nil {
		return nil, err
	}

	if pricing.RazorpayPlanID == "" {
		log.Printf("Subscription rejected, no recurring plan for %s/%s", planID, billingPeriod)
		return nil, ErrNoRecurringPlan
	}

	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// One subscription per user; stacking a second one would double-bill.
	if user.RazorpaySubscriptionID.Valid && user.RazorpaySubscriptionID.String != "" &&
		user.PlanStatus.String == model.PlanStatusActive {
		log.Printf("Subscription rejected, user %s already has active subscription %s",
			uid, user.RazorpaySubscriptionID.String)
		return nil, ErrAlreadySubscribed
	}

	customerID, err := s.resolveCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	totalCount := totalCountMonthly
	if billingPeriod == model.PeriodYearly {
		totalCount = totalCountYearly
	}

	notes := map[string]interface{}{
		noteKeyUID:           uid,
		noteKeyPlanID:        planID,
		noteKeyBillingPeriod: billingPeriod,
		noteKeyEmail:         user.Email,
	}

	gatewaySub, err := s.gateway.CreateSubscription(ctx, pricing.RazorpayPlanID, customerID, totalCount, true, notes)
	if err != nil {
		return nil, err
	}

	subscriptionID, _ := gatewaySub["id"].(string)
	if subscriptionID == "" {
		return nil, fmt.Errorf("gateway subscription response is missing an id")
	}
	// Status comes verbatim from the gateway; it is typically "created"
	// until the user confirms at the hosted checkout page.
	status, _ := gatewaySub["status"].(string)
	shortURL, _ := gatewaySub["short_url"].(string)

	subscription := &model.Subscription{
		SubscriptionID: subscriptionID,
		UID:            uid,
		PlanID:         planID,
		BillingPeriod:  billingPeriod,
		Status:         status,
		CustomerID:     customerID,
		ShortURL:       shortURL,
	}

	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		log.Printf("Failed to persist subscription %s: %v", subscriptionID, err)
		return nil, err
	}

	log.Printf("Created subscription %s for user %s: plan %s (%s), status %s",
		subscriptionID, uid, planID, billingPeriod, status)

	return &SubscriptionCheckout{
		SubscriptionID: subscriptionID,
		ShortURL:       shortURL,
	}, nil
}

// resolveCustomer returns the user's gateway customer id, creating one
// on first use. The id is persisted before the subscription call so a
// retry after a downstream failure reuses it instead of creating a
// duplicate customer.
func (s *DefaultSubscriptionService) resolveCustomer(ctx context.Context, user *model.UserProfile) (string, error) {
	if user.RazorpayCustomerID.Valid && user.RazorpayCustomerID.String != "" {
		return user.RazorpayCustomerID.String, nil
	}

	name := defaultCustomerName
	if user.DisplayName.Valid && user.DisplayName.String != "" {
		name = user.DisplayName.String
	}

	customer, err := s.gateway.CreateCustomer(ctx, name, user.Email, map[string]interface{}{
		noteKeyUID: user.UID,
	})
	if err != nil {
		return "", err
	}

	customerID, _ := customer["id"].(string)
	if customerID == "" {
		return "", fmt.Errorf("gateway customer response is missing an id")
	}

	if err := s.userRepo.SetRazorpayCustomerID(ctx, user.UID, customerID); err != nil {
		return "", err
	}

	log.Printf("Created Razorpay customer %s for user %s", customerID, user.UID)
	return customerID, nil
}

// GetSubscriptionStatus reads the user's entitlement. Expiry is lazy:
// there is no background sweep, so a past expiry timestamp on an active
// entitlement is written back as "expired" here, on read.
func (s *DefaultSubscriptionService) GetSubscriptionStatus(ctx context.Context, uid string) (*SubscriptionStatus, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	status := user.PlanStatus.String
	if user.PlanStatus.String == model.PlanStatusActive &&
		user.SubscriptionExpiresAt.Valid &&
		user.SubscriptionExpiresAt.Time.Before(s.now()) {
		if err := s.userRepo.MarkExpired(ctx, uid); err != nil {
			return nil, err
		}
		status = model.PlanStatusExpired
		log.Printf("Lazily expired subscription for user %s (expired %s)",
			uid, user.SubscriptionExpiresAt.Time.Format(time.RFC3339))
	}

	result := &SubscriptionStatus{
		Plan:          user.Plan,
		Status:        status,
		BillingPeriod: user.BillingPeriod.String,
	}
	if user.SubscriptionExpiresAt.Valid {
		expiresAt := user.SubscriptionExpiresAt.Time
		result.ExpiresAt = &expiresAt
	}

	return result, nil
}
