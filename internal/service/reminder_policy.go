package service

import (
	"subtrack/internal/config"
	"subtrack/internal/model"
)

const (
	minutesPerDay = 24 * 60
	// Google Calendar rejects overrides further out than four weeks.
	maxOverrideMinutes = 4 * 7 * minutesPerDay
)

// ReminderPolicyFor derives the reminder policy from the user's stored preferences.
func ReminderPolicyFor(u *model.User) model.ReminderPolicy {
	if u == nil {
		return model.ReminderPolicy{LeadDays: model.DefaultReminderDays}
	}
	lead := u.Preferences.ReminderDays
	if lead <= 0 {
		lead = model.DefaultReminderDays
	}
	return model.ReminderPolicy{
		Enabled:       u.RemindersEnabled && u.Preferences.EmailReminders,
		LeadDays:      lead,
		WeeklyDigest:  u.Preferences.WeeklyDigest,
		MonthlyReport: u.Preferences.MonthlyReport,
	}
}

// OverridePlanner decides which notifications a calendar event carries.
type OverridePlanner interface {
	Plan(policy model.ReminderPolicy) []model.ReminderOverride
}

// FixedOverrides always emails one day ahead and pops up one hour ahead, whatever the user prefers.
type FixedOverrides struct{}

func (FixedOverrides) Plan(model.ReminderPolicy) []model.ReminderOverride {
	return []model.ReminderOverride{
		{Method: model.ReminderEmail, Minutes: minutesPerDay},
		{Method: model.ReminderPopup, Minutes: 60},
	}
}

// LeadTimeOverrides sends the email LeadDays ahead when the user has reminders enabled.
type LeadTimeOverrides struct{}

func (LeadTimeOverrides) Plan(policy model.ReminderPolicy) []model.ReminderOverride {
	if !policy.Enabled || policy.LeadDays <= 0 {
		return FixedOverrides{}.Plan(policy)
	}
	minutes := int64(policy.LeadDays) * minutesPerDay
	if minutes > maxOverrideMinutes {
		minutes = maxOverrideMinutes
	}
	return []model.ReminderOverride{
		{Method: model.ReminderEmail, Minutes: minutes},
		{Method: model.ReminderPopup, Minutes: 60},
	}
}

// NewOverridePlanner maps REMINDER_OVERRIDE_MODE to a planner.
func NewOverridePlanner(mode string) OverridePlanner {
	if mode == config.OverrideModeLeadTime {
		return LeadTimeOverrides{}
	}
	return FixedOverrides{}
}
