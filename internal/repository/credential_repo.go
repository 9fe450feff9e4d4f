package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository persists per-user Google Calendar tokens.
type CredentialRepository interface {
	// GetCredential returns (nil, nil) when the user has not connected a calendar.
	GetCredential(ctx context.Context, userID string) (*model.CalendarCredential, error)
	UpsertCredential(ctx context.Context, userID string, cred *model.CalendarCredential) error
	DeleteCredential(ctx context.Context, userID string) error
}

type credentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepo{pool: pool}
}

func (r *credentialRepo) GetCredential(ctx context.Context, userID string) (*model.CalendarCredential, error) {
	const q = `
        SELECT access_token, refresh_token, scope, token_type, expiry
        FROM calendar_credentials
        WHERE user_id = $1
    `
	var (
		c      model.CalendarCredential
		expiry *time.Time
	)
	err := r.pool.QueryRow(ctx, q, userID).Scan(&c.AccessToken, &c.RefreshToken, &c.Scope, &c.TokenType, &expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch calendar credential for user %s: %w", userID, err)
	}
	if expiry != nil {
		c.Expiry = *expiry
	}
	return &c, nil
}

func (r *credentialRepo) UpsertCredential(ctx context.Context, userID string, cred *model.CalendarCredential) error {
	const q = `
        INSERT INTO calendar_credentials (user_id, access_token, refresh_token, scope, token_type, expiry, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            scope = EXCLUDED.scope,
            token_type = EXCLUDED.token_type,
            expiry = EXCLUDED.expiry,
            updated_at = NOW();
    `
	var expiry *time.Time
	if !cred.Expiry.IsZero() {
		expiry = &cred.Expiry
	}
	_, err := r.pool.Exec(ctx, q, userID, cred.AccessToken, cred.RefreshToken, cred.Scope, cred.TokenType, expiry)
	if err != nil {
		return fmt.Errorf("upsert calendar credential for user %s: %w", userID, err)
	}
	return nil
}

func (r *credentialRepo) DeleteCredential(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM calendar_credentials WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete calendar credential for user %s: %w", userID, err)
	}
	return nil
}
