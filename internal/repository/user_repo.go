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

// UserRepository is the account store consumed by the services.
// Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePreferences(ctx context.Context, id string, prefs model.UserPreferences, remindersEnabled bool) error
	SetActive(ctx context.Context, id string, active bool) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	DeleteUser(ctx context.Context, id string) (bool, error)
}

type userRepo struct {
	pool *pgxpool.Pool
	subs *subscriptionRepo
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool, subs: &subscriptionRepo{pool: pool}}
}

const userColumns = `user_id, name, email, password_hash, is_admin, is_active, reminders_enabled,
        email_reminders, reminder_days, weekly_digest, monthly_report, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.UserID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.IsActive,
		&u.RemindersEnabled,
		&u.Preferences.EmailReminders,
		&u.Preferences.ReminderDays,
		&u.Preferences.WeeklyDigest,
		&u.Preferences.MonthlyReport,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const q = `
        INSERT INTO users (user_id, name, email, password_hash, is_admin, is_active, reminders_enabled,
                           email_reminders, reminder_days, weekly_digest, monthly_report, last_login)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		u.UserID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.IsAdmin,
		u.IsActive,
		u.RemindersEnabled,
		u.Preferences.EmailReminders,
		u.Preferences.ReminderDays,
		u.Preferences.WeeklyDigest,
		u.Preferences.MonthlyReport,
		u.LastLogin,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	return nil
}

func (r *userRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	subs, err := r.subs.ListByUser(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	u.Subscriptions = subs
	return u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("fetch user by email: %w", err)
	}
	return u, nil
}

func (r *userRepo) FindUserBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error) {
	const q = `
        SELECT ` + userColumns + `
        FROM users
        WHERE user_id = (SELECT user_id FROM subscriptions WHERE id = $1)
    `
	u, err := r.getOne(ctx, q, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("fetch user by subscription %s: %w", subscriptionID, err)
	}
	return u, nil
}

func (r *userRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		subs, err := r.subs.ListByUser(ctx, users[i].UserID)
		if err != nil {
			return nil, err
		}
		users[i].Subscriptions = subs
	}
	return users, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2, updated_at = NOW() WHERE user_id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last login for user %s: %w", id, err)
	}
	return nil
}

func (r *userRepo) UpdatePreferences(ctx context.Context, id string, prefs model.UserPreferences, remindersEnabled bool) error {
	const q = `
        UPDATE users
        SET email_reminders = $2,
            reminder_days = $3,
            weekly_digest = $4,
            monthly_report = $5,
            reminders_enabled = $6,
            updated_at = NOW()
        WHERE user_id = $1
    `
	_, err := r.pool.Exec(ctx, q, id, prefs.EmailReminders, prefs.ReminderDays, prefs.WeeklyDigest, prefs.MonthlyReport, remindersEnabled)
	if err != nil {
		return fmt.Errorf("update preferences for user %s: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE user_id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set active=%t for user %s: %w", active, id, err)
	}
	return nil
}

func (r *userRepo) SetAdmin(ctx context.Context, id string, admin bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE user_id = $1`, id, admin)
	if err != nil {
		return fmt.Errorf("set admin=%t for user %s: %w", admin, id, err)
	}
	return nil
}

func (r *userRepo) DeleteUser(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
