package model

import (
	"database/sql"
	"time"
)

const (
	PlanFree       = "free"
	PlanIndividual = "individual"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Order statuses. "created" is set at checkout initiation; "paid" comes
// from the client verification path, "captured"/"failed" from webhooks.
const (
	OrderStatusCreated  = "created"
	OrderStatusPaid     = "paid"
	OrderStatusCaptured = "captured"
	OrderStatusFailed   = "failed"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusHalted    = "halted"
)

// Entitlement statuses on the user row.
const (
	PlanStatusActive        = "active"
	PlanStatusExpired       = "expired"
	PlanStatusCancelled     = "cancelled"
	PlanStatusPaymentFailed = "payment_failed"
)

type Order struct {
	OrderID       string         `json:"orderId" db:"order_id"`
	UID           string         `json:"uid" db:"uid"`
	PlanID        string         `json:"planId" db:"plan_id"`
	BillingPeriod string         `json:"billingPeriod" db:"billing_period"`
	Amount        int64          `json:"amount" db:"amount"`
	Currency      string         `json:"currency" db:"currency"`
	Status        string         `json:"status" db:"status"`
	PaymentID     sql.NullString `json:"paymentId" db:"payment_id"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	CapturedAt    sql.NullTime   `json:"capturedAt" db:"captured_at"`
	PaidAt        sql.NullTime   `json:"paidAt" db:"paid_at"`
}

type Subscription struct {
	SubscriptionID string    `json:"subscriptionId" db:"subscription_id"`
	UID            string    `json:"uid" db:"uid"`
	PlanID         string    `json:"planId" db:"plan_id"`
	BillingPeriod  string    `json:"billingPeriod" db:"billing_period"`
	Status         string    `json:"status" db:"status"`
	CustomerID     string    `json:"customerId" db:"customer_id"`
	ShortURL       string    `json:"shortUrl" db:"short_url"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// UserProfile is the user row as this service sees it. The entitlement
// columns (plan, plan_status, expiry and the razorpay_* references) are
// only ever written by the services in this repository, never by clients.
type UserProfile struct {
	UID                     string         `json:"uid" db:"uid"`
	Email                   string         `json:"email" db:"email"`
	DisplayName             sql.NullString `json:"displayName" db:"display_name"`
	Plan                    string         `json:"plan" db:"plan"`
	PlanStatus              sql.NullString `json:"planStatus" db:"plan_status"`
	BillingPeriod           sql.NullString `json:"billingPeriod" db:"billing_period"`
	RazorpayCustomerID      sql.NullString `json:"razorpayCustomerId" db:"razorpay_customer_id"`
	RazorpaySubscriptionID  sql.NullString `json:"razorpaySubscriptionId" db:"razorpay_subscription_id"`
	RazorpayPaymentID       sql.NullString `json:"razorpayPaymentId" db:"razorpay_payment_id"`
	SubscriptionStartedAt   sql.NullTime   `json:"subscriptionStartedAt" db:"subscription_started_at"`
	SubscriptionExpiresAt   sql.NullTime   `json:"subscriptionExpiresAt" db:"subscription_expires_at"`
	SubscriptionCancelledAt sql.NullTime   `json:"subscriptionCancelledAt" db:"subscription_cancelled_at"`
	CreatedAt               time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time      `json:"updatedAt" db:"updated_at"`
}

// PaymentHistoryEntry rows are append-only; exactly one of OrderID or
// SubscriptionID is set depending on whether the payment was a one-time
// purchase or a recurring charge.
type PaymentHistoryEntry struct {
	ID             string         `json:"id" db:"id"`
	UID            string         `json:"uid" db:"uid"`
	PaymentID      sql.NullString `json:"paymentId" db:"payment_id"`
	OrderID        sql.NullString `json:"orderId" db:"order_id"`
	SubscriptionID sql.NullString `json:"subscriptionId" db:"subscription_id"`
	PlanID         string         `json:"planId" db:"plan_id"`
	BillingPeriod  string         `json:"billingPeriod" db:"billing_period"`
	Amount         int64          `json:"amount" db:"amount"`
	Currency       string         `json:"currency" db:"currency"`
	Status         string         `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
}

// EntitlementUpdate carries the user-row fields a successful payment or
// subscription event writes. Nil time pointers leave the column untouched.
type EntitlementUpdate struct {
	Plan           string
	PlanStatus     string
	BillingPeriod  string
	PaymentID      string
	SubscriptionID string
	StartedAt      *time.Time
	ExpiresAt      *time.Time
	CancelledAt    *time.Time
}
