package service

import "context"

// PaymentGateway is the slice of the Razorpay client the services use.
// *razorpay.Client satisfies it; tests substitute fakes.
type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency string, receipt string, notes map[string]interface{}) (map[string]interface{}, error)
	CreateSubscription(ctx context.Context, planID string, customerID string, totalCount int, customerNotify bool, notes map[string]interface{}) (map[string]interface{}, error)
	CreateCustomer(ctx context.Context, name, email string, notes map[string]interface{}) (map[string]interface{}, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Correlation note keys embedded in gateway entities so webhooks can be
// attributed back to a user and plan.
const (
	noteKeyUID           = "firebase_uid"
	noteKeyPlanID        = "plan_id"
	noteKeyBillingPeriod = "billing_period"
	noteKeyEmail         = "email"
)
