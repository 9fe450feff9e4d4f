package model

import "time"

// User represents an account holder and the subscriptions they track.
type User struct {
	UserID           string          `db:"user_id" json:"user_id"`
	Name             string          `db:"name" json:"name"`
	Email            string          `db:"email" json:"email"`
	PasswordHash     string          `db:"password_hash" json:"-"`
	IsAdmin          bool            `db:"is_admin" json:"is_admin"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	RemindersEnabled bool            `db:"reminders_enabled" json:"reminders_enabled"`
	LastLogin        *time.Time      `db:"last_login" json:"last_login,omitempty"`
	Preferences      UserPreferences `json:"preferences"`
	Subscriptions    []Subscription  `json:"subscriptions"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// UserPreferences holds notification settings. ReminderDays is the lead time in days.
type UserPreferences struct {
	EmailReminders bool `db:"email_reminders" json:"email_reminders"`
	ReminderDays   int  `db:"reminder_days" json:"reminder_days"`
	WeeklyDigest   bool `db:"weekly_digest" json:"weekly_digest"`
	MonthlyReport  bool `db:"monthly_report" json:"monthly_report"`
}

const DefaultReminderDays = 3

// DefaultPreferences mirrors the defaults applied to new accounts.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		EmailReminders: true,
		ReminderDays:   DefaultReminderDays,
	}
}

// FindSubscription returns the user's subscription with the given ID, or nil.
func (u *User) FindSubscription(id string) *Subscription {
	for i := range u.Subscriptions {
		if u.Subscriptions[i].ID == id {
			return &u.Subscriptions[i]
		}
	}
	return nil
}
