package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"termivoxed-billing/internal/model"
)

type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*model.UserProfile, error)
	SetRazorpayCustomerID(ctx context.Context, uid string, customerID string) error
	UpdateEntitlement(ctx context.Context, uid string, update model.EntitlementUpdate) error
	MarkExpired(ctx context.Context, uid string) error
	AddPaymentHistory(ctx context.Context, entry *model.PaymentHistoryEntry) error
	GetPaymentHistory(ctx context.Context, uid string) ([]model.PaymentHistoryEntry, error)
}

type SQLUserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) GetByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	var user model.UserProfile

	query := `SELECT * FROM users WHERE uid = ?`

	err := r.db.GetContext(ctx, &user, query, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (r *SQLUserRepository) SetRazorpayCustomerID(ctx context.Context, uid string, customerID string) error {
	query := `
		UPDATE users
		SET razorpay_customer_id = ?, updated_at = NOW()
		WHERE uid = ?
	`

	_, err := r.db.ExecContext(ctx, query, customerID, uid)
	return err
}

func (r *SQLUserRepository) UpdateEntitlement(ctx context.Context, uid string, update model.EntitlementUpdate) error {
	return applyEntitlementUpdate(ctx, r.db, uid, update)
}

// MarkExpired flips an active entitlement to expired. The status guard
// keeps a concurrent webhook-driven cancellation from being overwritten.
func (r *SQLUserRepository) MarkExpired(ctx context.Context, uid string) error {
	query := `
		UPDATE users
		SET plan_status = ?, updated_at = NOW()
		WHERE uid = ? AND plan_status = ?
	`

	_, err := r.db.ExecContext(ctx, query, model.PlanStatusExpired, uid, model.PlanStatusActive)
	return err
}

func (r *SQLUserRepository) AddPaymentHistory(ctx context.Context, entry *model.PaymentHistoryEntry) error {
	return insertPaymentHistory(ctx, r.db, entry)
}

func (r *SQLUserRepository) GetPaymentHistory(ctx context.Context, uid string) ([]model.PaymentHistoryEntry, error) {
	var entries []model.PaymentHistoryEntry

	query := `
		SELECT * FROM payment_history
		WHERE uid = ?
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &entries, query, uid)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// applyEntitlementUpdate writes the entitlement columns a payment or
// subscription event carries. Shared with the order repository so the
// same statement runs inside MarkPaid's transaction. Zero-valued fields
// leave their columns untouched.
func applyEntitlementUpdate(ctx context.Context, ext sqlx.ExtContext, uid string, update model.EntitlementUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	if update.Plan != "" {
		sets = append(sets, "plan = ?")
		args = append(args, update.Plan)
	}
	if update.PlanStatus != "" {
		sets = append(sets, "plan_status = ?")
		args = append(args, update.PlanStatus)
	}
	if update.BillingPeriod != "" {
		sets = append(sets, "billing_period = ?")
		args = append(args, update.BillingPeriod)
	}
	if update.PaymentID != "" {
		sets = append(sets, "razorpay_payment_id = ?")
		args = append(args, update.PaymentID)
	}
	if update.SubscriptionID != "" {
		sets = append(sets, "razorpay_subscription_id = ?")
		args = append(args, update.SubscriptionID)
	}
	if update.StartedAt != nil {
		sets = append(sets, "subscription_started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.ExpiresAt != nil {
		sets = append(sets, "subscription_expires_at = ?")
		args = append(args, *update.ExpiresAt)
	}
	if update.CancelledAt != nil {
		sets = append(sets, "subscription_cancelled_at = ?")
		args = append(args, *update.CancelledAt)
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE uid = ?"
	args = append(args, uid)

	_, err := ext.ExecContext(ctx, query, args...)
	return err
}

func insertPaymentHistory(ctx context.Context, ext sqlx.ExtContext, entry *model.PaymentHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_history (
			id, uid, payment_id, order_id, subscription_id,
			plan_id, billing_period, amount, currency, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ext.ExecContext(ctx, query,
		entry.ID, entry.UID, entry.PaymentID, entry.OrderID, entry.SubscriptionID,
		entry.PlanID, entry.BillingPeriod, entry.Amount, entry.Currency,
		entry.Status, entry.CreatedAt,
	)
	return err
}
