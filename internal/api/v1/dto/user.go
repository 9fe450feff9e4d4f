package dto

import (
	"time"

	"subtrack/internal/model"
)

// RegisterRequestDTO is used for incoming sign-up requests
type RegisterRequestDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponseDTO carries the session token issued on register and login
type AuthResponseDTO struct {
	Token string          `json:"token"`
	User  UserResponseDTO `json:"user"`
}

type PreferencesDTO struct {
	EmailReminders   bool `json:"email_reminders"`
	ReminderDays     int  `json:"reminder_days"`
	WeeklyDigest     bool `json:"weekly_digest"`
	MonthlyReport    bool `json:"monthly_report"`
	RemindersEnabled bool `json:"reminders_enabled"`
}

// PreferencesUpdateDTO is a partial update; omitted fields keep their current value
type PreferencesUpdateDTO struct {
	EmailReminders   *bool `json:"email_reminders"`
	ReminderDays     *int  `json:"reminder_days" validate:"omitempty,min=1,max=28"`
	WeeklyDigest     *bool `json:"weekly_digest"`
	MonthlyReport    *bool `json:"monthly_report"`
	RemindersEnabled *bool `json:"reminders_enabled"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID        string                    `json:"user_id"`
	Name          string                    `json:"name"`
	Email         string                    `json:"email"`
	IsAdmin       bool                      `json:"is_admin"`
	IsActive      bool                      `json:"is_active"`
	LastLogin     *time.Time                `json:"last_login,omitempty"`
	Preferences   PreferencesDTO            `json:"preferences"`
	Subscriptions []SubscriptionResponseDTO `json:"subscriptions,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// UserStatusResponseDTO is returned after an admin toggles an account
type UserStatusResponseDTO struct {
	Message  string `json:"message"`
	IsActive bool   `json:"is_active"`
}

type UserRoleResponseDTO struct {
	Message string          `json:"message"`
	User    UserResponseDTO `json:"user"`
}

func NewPreferencesDTO(u *model.User) PreferencesDTO {
	return PreferencesDTO{
		EmailReminders:   u.Preferences.EmailReminders,
		ReminderDays:     u.Preferences.ReminderDays,
		WeeklyDigest:     u.Preferences.WeeklyDigest,
		MonthlyReport:    u.Preferences.MonthlyReport,
		RemindersEnabled: u.RemindersEnabled,
	}
}

// NewUserResponseDTO maps an account. Subscriptions are included only when withSubscriptions is set.
func NewUserResponseDTO(u *model.User, withSubscriptions bool) UserResponseDTO {
	resp := UserResponseDTO{
		UserID:      u.UserID,
		Name:        u.Name,
		Email:       u.Email,
		IsAdmin:     u.IsAdmin,
		IsActive:    u.IsActive,
		LastLogin:   u.LastLogin,
		Preferences: NewPreferencesDTO(u),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if withSubscriptions {
		resp.Subscriptions = make([]SubscriptionResponseDTO, 0, len(u.Subscriptions))
		for i := range u.Subscriptions {
			resp.Subscriptions = append(resp.Subscriptions, NewSubscriptionResponseDTO(&u.Subscriptions[i]))
		}
	}
	return resp
}
