package repository

import (
	"context"
	"errors"
	"fmt"

	"subtrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, s *model.Subscription) error
	// GetSubscriptionByID returns (nil, nil) when the subscription does not exist.
	GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]model.Subscription, error)
	UpdateSubscription(ctx context.Context, s *model.Subscription) error
	DeleteSubscription(ctx context.Context, userID, id string) (bool, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, service_name, cost, billing_cycle, category, next_payment_date,
        description, is_active, is_recurring, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ServiceName,
		&s.Cost,
		&s.BillingCycle,
		&s.Category,
		&s.NextPaymentDate,
		&s.Description,
		&s.IsActive,
		&s.IsRecurring,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) CreateSubscription(ctx context.Context, s *model.Subscription) error {
	const q = `
        INSERT INTO subscriptions (id, user_id, service_name, cost, billing_cycle, category, next_payment_date,
                                   description, is_active, is_recurring)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		s.ID,
		s.UserID,
		s.ServiceName,
		s.Cost,
		string(s.BillingCycle),
		string(s.Category),
		s.NextPaymentDate,
		s.Description,
		s.IsActive,
		s.IsRecurring,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription for user %s: %w", s.UserID, err)
	}
	return nil
}

func (r *subscriptionRepo) GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription %s: %w", id, err)
	}
	return s, nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	subs := []model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

func (r *subscriptionRepo) UpdateSubscription(ctx context.Context, s *model.Subscription) error {
	const q = `
        UPDATE subscriptions
        SET service_name = $3,
            cost = $4,
            billing_cycle = $5,
            category = $6,
            next_payment_date = $7,
            description = $8,
            is_active = $9,
            is_recurring = $10,
            updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		s.ID,
		s.UserID,
		s.ServiceName,
		s.Cost,
		string(s.BillingCycle),
		string(s.Category),
		s.NextPaymentDate,
		s.Description,
		s.IsActive,
		s.IsRecurring,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", s.ID, err)
	}
	return nil
}

func (r *subscriptionRepo) DeleteSubscription(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
