package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"termivoxed-billing/internal/model"
	"termivoxed-billing/internal/repository"
)

var (
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhookPayload = errors.New("malformed webhook payload")
)

// WebhookService is the authoritative writer for subscription state; the
// client-initiated verification path only covers one-time orders.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type DefaultWebhookService struct {
	gateway          PaymentGateway
	orderRepo        repository.OrderRepository
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository

	now func() time.Time
}

func NewWebhookService(
	gateway PaymentGateway,
	orderRepo repository.OrderRepository,
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
) *DefaultWebhookService {
	return &DefaultWebhookService{
		gateway:          gateway,
		orderRepo:        orderRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		now:              time.Now,
	}
}

// HandleWebhook authenticates the raw body against the webhook secret
// before acting on any of its content, then dispatches to the known
// event handlers. Unknown events are acknowledged without action so the
// gateway never retries something this service cannot process. A nil
// return means "acknowledge with 200"; an error means the gateway should
// redeliver.
func (s *DefaultWebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		log.Println("Webhook signature verification failed")
		return ErrInvalidWebhookSignature
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("Failed to parse webhook payload: %v", err)
		return ErrMalformedWebhookPayload
	}

	log.Printf("Received Razorpay webhook event: %s", event.Event)

	switch event.Event {
	case model.EventPaymentCaptured:
		return s.handlePaymentCaptured(ctx, &event)
	case model.EventPaymentFailed:
		return s.handlePaymentFailed(ctx, &event)
	case model.EventSubscriptionActivated:
		return s.handleSubscriptionActivated(ctx, &event)
	case model.EventSubscriptionCharged:
		return s.handleSubscriptionCharged(ctx, &event)
	case model.EventSubscriptionCancelled:
		return s.handleSubscriptionCancelled(ctx, &event)
	case model.EventSubscriptionHalted:
		return s.handleSubscriptionHalted(ctx, &event)
	default:
		log.Printf("Unhandled webhook event type: %s", event.Event)
		return nil
	}
}

func (s *DefaultWebhookService) handlePaymentCaptured(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Payment == nil {
		log.Println("payment.captured event without payment entity, dropping")
		return nil
	}
	payment := event.Payload.Payment.Entity

	// An unattributable payment can't be retried into attribution.
	uid := payment.Notes.Get(noteKeyUID)
	if uid == "" {
		log.Printf("payment.captured %s has no uid in notes, dropping", payment.ID)
		return nil
	}
	if payment.OrderID == "" {
		log.Printf("payment.captured %s has no order id, dropping", payment.ID)
		return nil
	}

	if err := s.orderRepo.MarkCaptured(ctx, payment.OrderID, payment.ID, s.now()); err != nil {
		return err
	}

	log.Printf("Payment captured: order %s, payment %s, user %s", payment.OrderID, payment.ID, uid)
	return nil
}

func (s *DefaultWebhookService) handlePaymentFailed(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Payment == nil {
		log.Println("payment.failed event without payment entity, dropping")
		return nil
	}
	payment := event.Payload.Payment.Entity

	if payment.OrderID == "" {
		log.Printf("payment.failed %s has no order id, dropping", payment.ID)
		return nil
	}

	if err := s.orderRepo.MarkFailed(ctx, payment.OrderID, payment.ID); err != nil {
		return err
	}

	log.Printf("Payment failed: order %s, payment %s", payment.OrderID, payment.ID)
	return nil
}

func (s *DefaultWebhookService) handleSubscriptionActivated(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Subscription == nil {
		log.Println("subscription.activated event without subscription entity, dropping")
		return nil
	}
	subscription := event.Payload.Subscription.Entity

	uid := subscription.Notes.Get(noteKeyUID)
	if uid == "" {
		log.Printf("subscription.activated %s has no uid in notes, dropping", subscription.ID)
		return nil
	}

	planID := subscription.Notes.Get(noteKeyPlanID)
	if planID == "" {
		planID = model.PlanIndividual
	}

	now := s.now()
	update := model.EntitlementUpdate{
		Plan:           planID,
		PlanStatus:     model.PlanStatusActive,
		BillingPeriod:  subscription.Notes.Get(noteKeyBillingPeriod),
		SubscriptionID: subscription.ID,
		StartedAt:      &now,
	}
	if subscription.CurrentEnd > 0 {
		expiresAt := time.Unix(subscription.CurrentEnd, 0)
		update.ExpiresAt = &expiresAt
	}

	if err := s.userRepo.UpdateEntitlement(ctx, uid, update); err != nil {
		return err
	}
	if err := s.subscriptionRepo.UpdateStatus(ctx, subscription.ID, model.SubscriptionStatusActive); err != nil {
		return err
	}

	log.Printf("Subscription activated: %s, user %s, plan %s", subscription.ID, uid, planID)
	return nil
}

func (s *DefaultWebhookService) handleSubscriptionCharged(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Subscription == nil {
		log.Println("subscription.charged event without subscription entity, dropping")
		return nil
	}
	subscription := event.Payload.Subscription.Entity

	uid := subscription.Notes.Get(noteKeyUID)
	if uid == "" {
		log.Printf("subscription.charged %s has no uid in notes, dropping", subscription.ID)
		return nil
	}

	update := model.EntitlementUpdate{
		PlanStatus: model.PlanStatusActive,
	}
	if subscription.CurrentEnd > 0 {
		expiresAt := time.Unix(subscription.CurrentEnd, 0)
		update.ExpiresAt = &expiresAt
	}

	if err := s.userRepo.UpdateEntitlement(ctx, uid, update); err != nil {
		return err
	}

	entry := &model.PaymentHistoryEntry{
		UID:            uid,
		SubscriptionID: sql.NullString{String: subscription.ID, Valid: true},
		PlanID:         subscription.Notes.Get(noteKeyPlanID),
		BillingPeriod:  subscription.Notes.Get(noteKeyBillingPeriod),
		Status:         "renewal",
	}
	// The charged event may carry the renewal's payment entity; record it
	// when present, leave the payment id NULL otherwise.
	if event.Payload.Payment != nil {
		payment := event.Payload.Payment.Entity
		entry.PaymentID = sql.NullString{String: payment.ID, Valid: payment.ID != ""}
		entry.Amount = payment.Amount
		entry.Currency = payment.Currency
	}
	if entry.PlanID == "" {
		if local, err := s.subscriptionRepo.GetByID(ctx, subscription.ID); err == nil && local != nil {
			entry.PlanID = local.PlanID
			entry.BillingPeriod = local.BillingPeriod
		}
	}

	if err := s.userRepo.AddPaymentHistory(ctx, entry); err != nil {
		return err
	}

	log.Printf("Subscription charged: %s, user %s, paid through %d", subscription.ID, uid, subscription.CurrentEnd)
	return nil
}

func (s *DefaultWebhookService) handleSubscriptionCancelled(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Subscription == nil {
		log.Println("subscription.cancelled event without subscription entity, dropping")
		return nil
	}
	subscription := event.Payload.Subscription.Entity

	uid := subscription.Notes.Get(noteKeyUID)
	if uid == "" {
		log.Printf("subscription.cancelled %s has no uid in notes, dropping", subscription.ID)
		return nil
	}

	// Access stays until the already-paid period ends; only the status
	// flips so no further renewals are expected.
	now := s.now()
	update := model.EntitlementUpdate{
		PlanStatus:  model.PlanStatusCancelled,
		CancelledAt: &now,
	}

	if err := s.userRepo.UpdateEntitlement(ctx, uid, update); err != nil {
		return err
	}
	if err := s.subscriptionRepo.UpdateStatus(ctx, subscription.ID, model.SubscriptionStatusCancelled); err != nil {
		return err
	}

	log.Printf("Subscription cancelled: %s, user %s", subscription.ID, uid)
	return nil
}

func (s *DefaultWebhookService) handleSubscriptionHalted(ctx context.Context, event *model.WebhookEvent) error {
	if event.Payload.Subscription == nil {
		log.Println("subscription.halted event without subscription entity, dropping")
		return nil
	}
	subscription := event.Payload.Subscription.Entity

	uid := subscription.Notes.Get(noteKeyUID)
	if uid == "" {
		log.Printf("subscription.halted %s has no uid in notes, dropping", subscription.ID)
		return nil
	}

	update := model.EntitlementUpdate{
		PlanStatus: model.PlanStatusPaymentFailed,
	}

	if err := s.userRepo.UpdateEntitlement(ctx, uid, update); err != nil {
		return err
	}
	if err := s.subscriptionRepo.UpdateStatus(ctx, subscription.ID, model.SubscriptionStatusHalted); err != nil {
		return err
	}

	// TODO: email the user that their renewals are failing so they can
	// update the payment method before access lapses.
	log.Printf("Subscription halted after repeated charge failures: %s, user %s", subscription.ID, uid)
	return nil
}
