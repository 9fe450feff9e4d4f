package dto

import (
	"time"

	"subtrack/internal/model"
)

// ReminderResponseDTO is returned after a calendar event is created
type ReminderResponseDTO struct {
	Message string `json:"message"`
	Link    string `json:"link"`
	EventID string `json:"event_id,omitempty"`
}

type LastReminderResponseDTO struct {
	SubscriptionID string    `json:"subscription_id"`
	EventID        string    `json:"event_id"`
	Link           string    `json:"link"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}

func NewLastReminderResponseDTO(e *model.ReminderLedgerEntry) LastReminderResponseDTO {
	return LastReminderResponseDTO{
		SubscriptionID: e.SubscriptionID,
		EventID:        e.EventID,
		Link:           e.HTMLLink,
		ScheduledAt:    e.ScheduledAt,
	}
}

type ReminderStatusResponseDTO struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

// ErrorResponseDTO is the body of every error response. Kind is a stable machine-readable code.
type ErrorResponseDTO struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
