package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/model"
)

// Full one-time purchase flow: checkout, client-side verification,
// status query.
func TestOneTimePurchaseFlow(t *testing.T) {
	gateway := newFakeGateway()
	userRepo := newFakeUserRepo()
	orderRepo := newFakeOrderRepo(userRepo)
	planCatalog := catalog.New()

	orderService := NewOrderService(planCatalog, gateway, orderRepo, userRepo)
	verificationService := NewVerificationService(planCatalog, gateway, orderRepo)
	subscriptionService := NewSubscriptionService(planCatalog, gateway, newFakeSubscriptionRepo(), userRepo)

	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	verificationService.now = func() time.Time { return now }
	subscriptionService.now = func() time.Time { return now }

	userRepo.users["U1"] = newTestUser("U1")
	ctx := context.Background()

	checkout, err := orderService.CreateOrder(ctx, "U1", model.PlanIndividual, model.PeriodMonthly)
	require.NoError(t, err)
	assert.Equal(t, int64(19900), checkout.Amount)
	assert.Equal(t, "INR", checkout.Currency)

	// user pays at the gateway; the browser reports back with a signed result
	signature := paymentSignature(checkout.OrderID, "pay_U1_1")
	message, err := verificationService.VerifyPayment(ctx, "U1", checkout.OrderID, "pay_U1_1", signature)
	require.NoError(t, err)
	assert.NotEmpty(t, message)

	status, err := subscriptionService.GetSubscriptionStatus(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanIndividual, status.Plan)
	assert.Equal(t, model.PlanStatusActive, status.Status)
	assert.Equal(t, model.PeriodMonthly, status.BillingPeriod)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, time.Date(2024, 4, 10, 9, 30, 0, 0, time.UTC), *status.ExpiresAt)

	history, err := userRepo.GetPaymentHistory(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, checkout.OrderID, history[0].OrderID.String)
}

// Recurring flow: subscription checkout, webhook activation, renewal,
// cancellation.
func TestSubscriptionLifecycleFlow(t *testing.T) {
	gateway := newFakeGateway()
	userRepo := newFakeUserRepo()
	orderRepo := newFakeOrderRepo(userRepo)
	subscriptionRepo := newFakeSubscriptionRepo()
	planCatalog := catalog.New()

	subscriptionService := NewSubscriptionService(planCatalog, gateway, subscriptionRepo, userRepo)
	webhookService := NewWebhookService(gateway, orderRepo, subscriptionRepo, userRepo)

	userRepo.users["U2"] = newTestUser("U2")
	ctx := context.Background()

	checkout, err := subscriptionService.CreateSubscription(ctx, "U2", model.PlanPro, model.PeriodMonthly)
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.ShortURL)

	// gateway confirms activation asynchronously
	firstEnd := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC).Unix()
	body, signature := signedWebhook(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"` + checkout.SubscriptionID + `","status":"active","current_end":` + itoa(firstEnd) + `,"notes":{"firebase_uid":"U2","plan_id":"pro","billing_period":"monthly"}}}}}`)
	require.NoError(t, webhookService.HandleWebhook(ctx, body, signature))

	status, err := subscriptionService.GetSubscriptionStatus(ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, status.Plan)
	assert.Equal(t, model.PlanStatusActive, status.Status)

	// a renewal charge lands a month later
	secondEnd := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).Unix()
	body, signature = signedWebhook(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"` + checkout.SubscriptionID + `","status":"active","current_end":` + itoa(secondEnd) + `,"notes":{"firebase_uid":"U2","plan_id":"pro","billing_period":"monthly"}}},"payment":{"entity":{"id":"pay_renew_1","amount":49900,"currency":"INR"}}}}`)
	require.NoError(t, webhookService.HandleWebhook(ctx, body, signature))
	assert.Equal(t, secondEnd, userRepo.users["U2"].SubscriptionExpiresAt.Time.Unix())

	// user cancels; access is retained until the paid period ends
	body, signature = signedWebhook(`{"event":"subscription.cancelled","payload":{"subscription":{"entity":{"id":"` + checkout.SubscriptionID + `","status":"cancelled","notes":{"firebase_uid":"U2"}}}}}`)
	require.NoError(t, webhookService.HandleWebhook(ctx, body, signature))

	status, err = subscriptionService.GetSubscriptionStatus(ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, model.PlanStatusCancelled, status.Status)
	assert.Equal(t, secondEnd, status.ExpiresAt.Unix())
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
