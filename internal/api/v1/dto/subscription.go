package dto

import (
	"time"

	"subtrack/internal/model"
)

// SubscriptionRequestDTO is used for create and full update requests
type SubscriptionRequestDTO struct {
	ServiceName     string    `json:"service_name" validate:"required,max=100"`
	Cost            float64   `json:"cost" validate:"gte=0"`
	BillingCycle    string    `json:"billing_cycle" validate:"required,oneof=weekly monthly quarterly yearly"`
	Category        string    `json:"category" validate:"required,oneof=streaming productivity design development fitness music news other"`
	NextPaymentDate time.Time `json:"next_payment_date" validate:"required"`
	Description     string    `json:"description" validate:"max=500"`
	IsActive        *bool     `json:"is_active"`
	IsRecurring     *bool     `json:"is_recurring"`
}

type SubscriptionResponseDTO struct {
	ID              string    `json:"id"`
	ServiceName     string    `json:"service_name"`
	Cost            float64   `json:"cost"`
	BillingCycle    string    `json:"billing_cycle"`
	Category        string    `json:"category"`
	NextPaymentDate time.Time `json:"next_payment_date"`
	Description     string    `json:"description"`
	IsActive        bool      `json:"is_active"`
	IsRecurring     bool      `json:"is_recurring"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Model converts the request. Active and recurring default to true.
func (d *SubscriptionRequestDTO) Model() *model.Subscription {
	s := &model.Subscription{
		ServiceName:     d.ServiceName,
		Cost:            d.Cost,
		BillingCycle:    model.BillingCycle(d.BillingCycle),
		Category:        model.Category(d.Category),
		NextPaymentDate: d.NextPaymentDate,
		Description:     d.Description,
		IsActive:        true,
		IsRecurring:     true,
	}
	if d.IsActive != nil {
		s.IsActive = *d.IsActive
	}
	if d.IsRecurring != nil {
		s.IsRecurring = *d.IsRecurring
	}
	return s
}

func NewSubscriptionResponseDTO(s *model.Subscription) SubscriptionResponseDTO {
	return SubscriptionResponseDTO{
		ID:              s.ID,
		ServiceName:     s.ServiceName,
		Cost:            s.Cost,
		BillingCycle:    string(s.BillingCycle),
		Category:        string(s.Category),
		NextPaymentDate: s.NextPaymentDate,
		Description:     s.Description,
		IsActive:        s.IsActive,
		IsRecurring:     s.IsRecurring,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
