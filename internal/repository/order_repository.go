package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"termivoxed-billing/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	MarkCaptured(ctx context.Context, orderID string, paymentID string, capturedAt time.Time) error
	MarkFailed(ctx context.Context, orderID string, paymentID string) error
	MarkPaid(ctx context.Context, order *model.Order, update model.EntitlementUpdate, entry *model.PaymentHistoryEntry) error
}

type SQLOrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &SQLOrderRepository{db: db}
}

func (r *SQLOrderRepository) Create(ctx context.Context, order *model.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO orders (
			order_id, uid, plan_id, billing_period,
			amount, currency, status, payment_id, created_at
		) VALUES (
			:order_id, :uid, :plan_id, :billing_period,
			:amount, :currency, :status, :payment_id, :created_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, order)
	return err
}

func (r *SQLOrderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order

	query := `SELECT * FROM orders WHERE order_id = ?`

	err := r.db.GetContext(ctx, &order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &order, nil
}

// MarkCaptured records a payment.captured webhook against the order. The
// status guard leaves an order the client verification path has already
// finalized ("paid") alone; whichever writer arrives second converges.
func (r *SQLOrderRepository) MarkCaptured(ctx context.Context, orderID string, paymentID string, capturedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = ?, payment_id = ?, captured_at = ?
		WHERE order_id = ? AND status = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		model.OrderStatusCaptured, paymentID, capturedAt, orderID, model.OrderStatusCreated)
	return err
}

func (r *SQLOrderRepository) MarkFailed(ctx context.Context, orderID string, paymentID string) error {
	query := `
		UPDATE orders
		SET status = ?, payment_id = ?
		WHERE order_id = ? AND status = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		model.OrderStatusFailed, paymentID, orderID, model.OrderStatusCreated)
	return err
}

// MarkPaid commits the three writes of a verified payment as a single
// transaction: order to "paid", entitlement columns on the user row, and
// the payment-history append. A partial commit would leave a user who
// paid without access, so all three succeed or none do.
//
// The order update is conditional on the order not already being in a
// terminal paid/failed state: a repeated verification call (or one that
// lost the race to itself) finds zero updatable rows and returns without
// touching entitlement or history.
func (r *SQLOrderRepository) MarkPaid(ctx context.Context, order *model.Order, update model.EntitlementUpdate, entry *model.PaymentHistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// "created" (normal path) and "captured" (webhook won the race) are
	// both upgradeable to "paid".
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_id = ?, paid_at = ?
		WHERE order_id = ? AND status IN (?, ?)
	`,
		model.OrderStatusPaid, order.PaymentID, order.PaidAt,
		order.OrderID, model.OrderStatusCreated, model.OrderStatusCaptured,
	)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already finalized by an earlier call; nothing more to write.
		return tx.Commit()
	}

	if err := applyEntitlementUpdate(ctx, tx, order.UID, update); err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}

	if err := insertPaymentHistory(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to record payment history: %w", err)
	}

	return tx.Commit()
}
