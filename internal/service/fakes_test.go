package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"termivoxed-billing/internal/model"
)

const (
	testKeyID         = "rzp_test_fake000000001"
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

func signHex(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// fakeGateway is an in-memory PaymentGateway with canned responses and
// call counters. Signature checks use the real HMAC scheme so tests can
// exercise forged and stale signatures.
type fakeGateway struct {
	orderResp        map[string]interface{}
	orderErr         error
	subscriptionResp map[string]interface{}
	subscriptionErr  error
	customerResp     map[string]interface{}
	customerErr      error

	createOrderCalls        int
	createSubscriptionCalls int
	createCustomerCalls     int

	lastOrderNotes        map[string]interface{}
	lastSubscriptionNotes map[string]interface{}
	lastPlanID            string
	lastCustomerID        string
	lastTotalCount        int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orderResp:        map[string]interface{}{"id": "order_fake001"},
		subscriptionResp: map[string]interface{}{"id": "sub_fake001", "status": "created", "short_url": "https://rzp.io/i/fake"},
		customerResp:     map[string]interface{}{"id": "cust_fake001"},
	}
}

func (g *fakeGateway) KeyID() string { return testKeyID }

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency string, receipt string, notes map[string]interface{}) (map[string]interface{}, error) {
	g.createOrderCalls++
	g.lastOrderNotes = notes
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return g.orderResp, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, planID string, customerID string, totalCount int, customerNotify bool, notes map[string]interface{}) (map[string]interface{}, error) {
	g.createSubscriptionCalls++
	g.lastSubscriptionNotes = notes
	g.lastPlanID = planID
	g.lastCustomerID = customerID
	g.lastTotalCount = totalCount
	if g.subscriptionErr != nil {
		return nil, g.subscriptionErr
	}
	return g.subscriptionResp, nil
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, name, email string, notes map[string]interface{}) (map[string]interface{}, error) {
	g.createCustomerCalls++
	if g.customerErr != nil {
		return nil, g.customerErr
	}
	return g.customerResp, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := signHex(testKeySecret, []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	expected := signHex(testWebhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// fakeUserRepo keeps user rows and payment history in memory, applying
// entitlement updates the way the SQL implementation does.
type fakeUserRepo struct {
	users   map[string]*model.UserProfile
	history []model.PaymentHistoryEntry

	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.UserProfile{}}
}

func (r *fakeUserRepo) GetByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	user, ok := r.users[uid]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) SetRazorpayCustomerID(ctx context.Context, uid string, customerID string) error {
	if user, ok := r.users[uid]; ok {
		user.RazorpayCustomerID.String = customerID
		user.RazorpayCustomerID.Valid = true
	}
	return nil
}

func (r *fakeUserRepo) applyUpdate(user *model.UserProfile, update model.EntitlementUpdate) {
	if update.Plan != "" {
		user.Plan = update.Plan
	}
	if update.PlanStatus != "" {
		user.PlanStatus.String = update.PlanStatus
		user.PlanStatus.Valid = true
	}
	if update.BillingPeriod != "" {
		user.BillingPeriod.String = update.BillingPeriod
		user.BillingPeriod.Valid = true
	}
	if update.PaymentID != "" {
		user.RazorpayPaymentID.String = update.PaymentID
		user.RazorpayPaymentID.Valid = true
	}
	if update.SubscriptionID != "" {
		user.RazorpaySubscriptionID.String = update.SubscriptionID
		user.RazorpaySubscriptionID.Valid = true
	}
	if update.StartedAt != nil {
		user.SubscriptionStartedAt.Time = *update.StartedAt
		user.SubscriptionStartedAt.Valid = true
	}
	if update.ExpiresAt != nil {
		user.SubscriptionExpiresAt.Time = *update.ExpiresAt
		user.SubscriptionExpiresAt.Valid = true
	}
	if update.CancelledAt != nil {
		user.SubscriptionCancelledAt.Time = *update.CancelledAt
		user.SubscriptionCancelledAt.Valid = true
	}
}

func (r *fakeUserRepo) UpdateEntitlement(ctx context.Context, uid string, update model.EntitlementUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if user, ok := r.users[uid]; ok {
		r.applyUpdate(user, update)
	}
	return nil
}

func (r *fakeUserRepo) MarkExpired(ctx context.Context, uid string) error {
	if user, ok := r.users[uid]; ok && user.PlanStatus.String == model.PlanStatusActive {
		user.PlanStatus.String = model.PlanStatusExpired
	}
	return nil
}

func (r *fakeUserRepo) AddPaymentHistory(ctx context.Context, entry *model.PaymentHistoryEntry) error {
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeUserRepo) GetPaymentHistory(ctx context.Context, uid string) ([]model.PaymentHistoryEntry, error) {
	var entries []model.PaymentHistoryEntry
	for _, e := range r.history {
		if e.UID == uid {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// fakeOrderRepo mirrors the conditional-update semantics of the SQL
// implementation, including the all-or-nothing MarkPaid.
type fakeOrderRepo struct {
	orders map[string]*model.Order

	// when set, MarkPaid fails before any of its writes become visible
	markPaidErr error
	// the user/history side of MarkPaid's transaction
	userRepo *fakeUserRepo
}

func newFakeOrderRepo(userRepo *fakeUserRepo) *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*model.Order{}, userRepo: userRepo}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	copied := *order
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	r.orders[order.OrderID] = &copied
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) MarkCaptured(ctx context.Context, orderID string, paymentID string, capturedAt time.Time) error {
	if order, ok := r.orders[orderID]; ok && order.Status == model.OrderStatusCreated {
		order.Status = model.OrderStatusCaptured
		order.PaymentID.String = paymentID
		order.PaymentID.Valid = true
		order.CapturedAt.Time = capturedAt
		order.CapturedAt.Valid = true
	}
	return nil
}

func (r *fakeOrderRepo) MarkFailed(ctx context.Context, orderID string, paymentID string) error {
	if order, ok := r.orders[orderID]; ok && order.Status == model.OrderStatusCreated {
		order.Status = model.OrderStatusFailed
		order.PaymentID.String = paymentID
		order.PaymentID.Valid = true
	}
	return nil
}

func (r *fakeOrderRepo) MarkPaid(ctx context.Context, order *model.Order, update model.EntitlementUpdate, entry *model.PaymentHistoryEntry) error {
	if r.markPaidErr != nil {
		return r.markPaidErr
	}

	stored, ok := r.orders[order.OrderID]
	if !ok {
		return nil
	}
	if stored.Status != model.OrderStatusCreated && stored.Status != model.OrderStatusCaptured {
		return nil
	}

	stored.Status = model.OrderStatusPaid
	stored.PaymentID = order.PaymentID
	stored.PaidAt = order.PaidAt

	if user, found := r.userRepo.users[order.UID]; found {
		r.userRepo.applyUpdate(user, update)
	}
	r.userRepo.history = append(r.userRepo.history, *entry)
	return nil
}

type fakeSubscriptionRepo struct {
	subscriptions map[string]*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subscriptions: map[string]*model.Subscription{}}
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, subscription *model.Subscription) error {
	copied := *subscription
	r.subscriptions[subscription.SubscriptionID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	subscription, ok := r.subscriptions[subscriptionID]
	if !ok {
		return nil, nil
	}
	copied := *subscription
	return &copied, nil
}

func (r *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, subscriptionID string, status string) error {
	if subscription, ok := r.subscriptions[subscriptionID]; ok {
		subscription.Status = status
	}
	return nil
}

func newTestUser(uid string) *model.UserProfile {
	return &model.UserProfile{
		UID:       uid,
		Email:     uid + "@example.com",
		Plan:      model.PlanFree,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}
