package model

import "time"

// ReminderPolicy is the read-only view of a user's reminder preferences.
type ReminderPolicy struct {
	Enabled       bool
	LeadDays      int
	WeeklyDigest  bool
	MonthlyReport bool
}

type ReminderMethod string

const (
	ReminderEmail ReminderMethod = "email"
	ReminderPopup ReminderMethod = "popup"
)

// ReminderOverride tells the calendar provider when and how to notify before an event.
type ReminderOverride struct {
	Method  ReminderMethod `json:"method"`
	Minutes int64          `json:"minutes"`
}

// ScheduledReminder is a calendar event created for a subscription payment.
type ScheduledReminder struct {
	SubscriptionID string             `json:"subscription_id"`
	UserID         string             `json:"user_id"`
	Summary        string             `json:"summary"`
	Description    string             `json:"description"`
	Start          time.Time          `json:"start"`
	End            time.Time          `json:"end"`
	TimeZone       string             `json:"time_zone"`
	Overrides      []ReminderOverride `json:"overrides"`
	EventID        string             `json:"event_id,omitempty"`
	HTMLLink       string             `json:"html_link,omitempty"`
}

// ReminderLedgerEntry records the last calendar event created for a subscription.
type ReminderLedgerEntry struct {
	SubscriptionID string    `db:"subscription_id"`
	UserID         string    `db:"user_id"`
	EventID        string    `db:"event_id"`
	HTMLLink       string    `db:"html_link"`
	ScheduledAt    time.Time `db:"scheduled_at"`
}
