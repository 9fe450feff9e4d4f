package repository

import (
	"context"
	"errors"
	"fmt"

	"subtrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReminderLedgerRepository records the last calendar event created per subscription.
type ReminderLedgerRepository interface {
	Record(ctx context.Context, entry *model.ReminderLedgerEntry) error
	// Last returns (nil, nil) when nothing was scheduled for the subscription.
	Last(ctx context.Context, subscriptionID string) (*model.ReminderLedgerEntry, error)
}

type reminderLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewReminderLedgerRepo(pool *pgxpool.Pool) ReminderLedgerRepository {
	return &reminderLedgerRepo{pool: pool}
}

func (r *reminderLedgerRepo) Record(ctx context.Context, e *model.ReminderLedgerEntry) error {
	const q = `
        INSERT INTO reminder_ledger (subscription_id, user_id, event_id, html_link, scheduled_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (subscription_id) DO UPDATE
        SET event_id = EXCLUDED.event_id,
            html_link = EXCLUDED.html_link,
            scheduled_at = EXCLUDED.scheduled_at;
    `
	_, err := r.pool.Exec(ctx, q, e.SubscriptionID, e.UserID, e.EventID, e.HTMLLink, e.ScheduledAt)
	if err != nil {
		return fmt.Errorf("record reminder for subscription %s: %w", e.SubscriptionID, err)
	}
	return nil
}

func (r *reminderLedgerRepo) Last(ctx context.Context, subscriptionID string) (*model.ReminderLedgerEntry, error) {
	const q = `
        SELECT subscription_id, user_id, event_id, html_link, scheduled_at
        FROM reminder_ledger
        WHERE subscription_id = $1
    `
	var e model.ReminderLedgerEntry
	err := r.pool.QueryRow(ctx, q, subscriptionID).Scan(&e.SubscriptionID, &e.UserID, &e.EventID, &e.HTMLLink, &e.ScheduledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch reminder ledger for subscription %s: %w", subscriptionID, err)
	}
	return &e, nil
}
