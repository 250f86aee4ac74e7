package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/model"
	"termivoxed-billing/internal/repository"
)

var (
	ErrCustomPricing = errors.New("this plan has custom pricing, please contact sales")
	ErrUserNotFound  = errors.New("user not found")
)

// OrderCheckout is what the browser needs to open the embedded checkout.
type OrderCheckout struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, uid string, planID string, billingPeriod string) (*OrderCheckout, error)
}

type DefaultOrderService struct {
	catalog   *catalog.Catalog
	gateway   PaymentGateway
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
}

func NewOrderService(
	catalog *catalog.Catalog,
	gateway PaymentGateway,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
) OrderService {
	return &DefaultOrderService{
		catalog:   catalog,
		gateway:   gateway,
		orderRepo: orderRepo,
		userRepo:  userRepo,
	}
}

// CreateOrder validates the plan selection, creates a one-time order at
// the gateway and persists the local order record. Each call creates a
// new, independent order; there is no deduplication of repeated calls.
func (s *DefaultOrderService) CreateOrder(ctx context.Context, uid string, planID string, billingPeriod string) (*OrderCheckout, error) {
	plan, err := s.catalog.Lookup(planID)
	if err != nil {
		log.Printf("Order rejected, unknown plan %q for user %s", planID, uid)
		return nil, err
	}

	pricing, err := plan.Pricing(billingPeriod)
	if err != nil {
		log.Printf("Order rejected, bad billing period %q for user %s", billingPeriod, uid)
		return nil, err
	}

	if pricing.Amount == 0 {
		log.Printf("Order rejected, plan %s is sales-assisted", planID)
		return nil, ErrCustomPricing
	}

	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Printf("Order rejected, no profile for user %s", uid)
		return nil, ErrUserNotFound
	}

	receipt := "tv_" + uuid.New().String()[:18]
	notes := map[string]interface{}{
		noteKeyUID:           uid,
		noteKeyPlanID:        planID,
		noteKeyBillingPeriod: billingPeriod,
		noteKeyEmail:         user.Email,
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, pricing.Amount, pricing.Currency, receipt, notes)
	if err != nil {
		return nil, err
	}

	orderID, _ := gatewayOrder["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("gateway order response is missing an id")
	}

	order := &model.Order{
		OrderID:       orderID,
		UID:           uid,
		PlanID:        planID,
		BillingPeriod: billingPeriod,
		Amount:        pricing.Amount,
		Currency:      pricing.Currency,
		Status:        model.OrderStatusCreated,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		log.Printf("Failed to persist order %s: %v", orderID, err)
		return nil, err
	}

	log.Printf("Created order %s for user %s: plan %s (%s), %d %s",
		orderID, uid, planID, billingPeriod, pricing.Amount, pricing.Currency)

	return &OrderCheckout{
		OrderID:  orderID,
		Amount:   pricing.Amount,
		Currency: pricing.Currency,
		KeyID:    s.gateway.KeyID(),
	}, nil
}
