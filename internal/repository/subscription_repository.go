package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"termivoxed-billing/internal/model"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *model.Subscription) error
	GetByID(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, subscriptionID string, status string) error
}

type SQLSubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &SQLSubscriptionRepository{db: db}
}

func (r *SQLSubscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	now := time.Now()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}
	subscription.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (
			subscription_id, uid, plan_id, billing_period,
			status, customer_id, short_url, created_at, updated_at
		) VALUES (
			:subscription_id, :uid, :plan_id, :billing_period,
			:status, :customer_id, :short_url, :created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, subscription)
	return err
}

func (r *SQLSubscriptionRepository) GetByID(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	var subscription model.Subscription

	query := `SELECT * FROM subscriptions WHERE subscription_id = ?`

	err := r.db.GetContext(ctx, &subscription, query, subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &subscription, nil
}

func (r *SQLSubscriptionRepository) UpdateStatus(ctx context.Context, subscriptionID string, status string) error {
	query := `
		UPDATE subscriptions
		SET status = ?, updated_at = NOW()
		WHERE subscription_id = ?
	`

	_, err := r.db.ExecContext(ctx, query, status, subscriptionID)
	return err
}
