package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrReminderNotRecorded    = errors.New("no reminder recorded for subscription")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrForbidden              = errors.New("admin access required")
	ErrSelfModification       = errors.New("admins cannot change their own role or delete themselves")

	// ErrValidation marks malformed input, such as an identifier that cannot exist.
	ErrValidation            = errors.New("validation failed")
	ErrInvalidSubscriptionID = fmt.Errorf("%w: invalid subscription id", ErrValidation)
	ErrInvalidUserID         = fmt.Errorf("%w: invalid user id", ErrValidation)

	ErrNotAuthenticated   = errors.New("google calendar not connected")
	ErrCredentialNotFound = errors.New("calendar credential not found")

	ErrAuthExchange       = errors.New("authorization code exchange failed")
	ErrCodeAlreadyUsed    = errors.New("authorization code already used")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
	ErrMissingAuthCode    = errors.New("missing authorization code")
	ErrExternalScheduling = errors.New("calendar provider rejected the reminder")
)

// AuthExchangeError reports a failed or replayed authorization code exchange.
// It matches ErrAuthExchange and the specific cause with errors.Is.
type AuthExchangeError struct {
	Cause error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrAuthExchange, e.Cause)
}

func (e *AuthExchangeError) Is(target error) bool { return target == ErrAuthExchange }

func (e *AuthExchangeError) Unwrap() error { return e.Cause }

// SchedulingError carries the calendar provider's diagnostic for a failed event insert.
type SchedulingError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *SchedulingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", ErrExternalScheduling, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", ErrExternalScheduling, e.Detail)
}

func (e *SchedulingError) Is(target error) bool { return target == ErrExternalScheduling }

func (e *SchedulingError) Unwrap() error { return e.Err }
