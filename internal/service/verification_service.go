package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/model"
	"termivoxed-billing/internal/repository"
)

var (
	ErrMissingFields     = errors.New("order id, payment id and signature are required")
	ErrSignatureMismatch = errors.New("payment verification failed")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderOwnership    = errors.New("order does not belong to this user")
)

type VerificationService interface {
	VerifyPayment(ctx context.Context, uid string, orderID string, paymentID string, signature string) (string, error)
}

type DefaultVerificationService struct {
	catalog   *catalog.Catalog
	gateway   PaymentGateway
	orderRepo repository.OrderRepository

	now func() time.Time
}

func NewVerificationService(
	catalog *catalog.Catalog,
	gateway PaymentGateway,
	orderRepo repository.OrderRepository,
) *DefaultVerificationService {
	return &DefaultVerificationService{
		catalog:   catalog,
		gateway:   gateway,
		orderRepo: orderRepo,
		now:       time.Now,
	}
}

// VerifyPayment checks the client-reported checkout result. The HMAC
// signature is the sole proof the payment actually succeeded and was not
// forged, so it is checked before anything is loaded. On success the
// order, the user's entitlement and the payment history are committed in
// one transaction.
func (s *DefaultVerificationService) VerifyPayment(ctx context.Context, uid string, orderID string, paymentID string, signature string) (string, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return "", ErrMissingFields
	}

	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		log.Printf("Payment signature mismatch for order %s, user %s", orderID, uid)
		return "", ErrSignatureMismatch
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	if order.UID != uid {
		log.Printf("Ownership mismatch on order %s: owned by %s, claimed by %s",
			orderID, order.UID, uid)
		return "", ErrOrderOwnership
	}

	now := s.now()
	expiresAt := addCalendar(now, 0, 1)
	if order.BillingPeriod == model.PeriodYearly {
		expiresAt = addCalendar(now, 1, 0)
	}

	order.Status = model.OrderStatusPaid
	order.PaymentID = sql.NullString{String: paymentID, Valid: true}
	order.PaidAt = sql.NullTime{Time: now, Valid: true}

	update := model.EntitlementUpdate{
		Plan:          order.PlanID,
		PlanStatus:    model.PlanStatusActive,
		BillingPeriod: order.BillingPeriod,
		PaymentID:     paymentID,
		StartedAt:     &now,
		ExpiresAt:     &expiresAt,
	}

	entry := &model.PaymentHistoryEntry{
		UID:           uid,
		PaymentID:     sql.NullString{String: paymentID, Valid: true},
		OrderID:       sql.NullString{String: orderID, Valid: true},
		PlanID:        order.PlanID,
		BillingPeriod: order.BillingPeriod,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Status:        "success",
	}

	if err := s.orderRepo.MarkPaid(ctx, order, update, entry); err != nil {
		log.Printf("Failed to finalize payment for order %s: %v", orderID, err)
		return "", err
	}

	planName := order.PlanID
	if plan, err := s.catalog.Lookup(order.PlanID); err == nil {
		planName = plan.Name
	}

	log.Printf("Payment verified for user %s: order %s, payment %s, plan %s until %s",
		uid, orderID, paymentID, order.PlanID, expiresAt.Format(time.RFC3339))

	return fmt.Sprintf("Payment verified. %s plan is now active.", planName), nil
}

// addCalendar advances by calendar years/months, clamping to the last
// day of the target month when the source day does not exist there:
// Jan 31 + 1 month = Feb 28/29, Feb 29 + 1 year = Feb 28. Go's AddDate
// would instead normalize the overflow forward into the next month,
// granting extra days.
func addCalendar(t time.Time, years, months int) time.Time {
	target := time.Date(t.Year()+years, t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	day := t.Day()
	lastDay := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
