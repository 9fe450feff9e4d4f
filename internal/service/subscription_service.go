package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"subtrack/internal/model"
	"subtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	// Resolve finds a subscription and its owner from the subscription id alone.
	Resolve(ctx context.Context, subscriptionID string) (*model.User, *model.Subscription, error)

	Create(ctx context.Context, userID string, s *model.Subscription) (*model.Subscription, error)
	List(ctx context.Context, userID string) ([]model.Subscription, error)
	Get(ctx context.Context, userID, id string) (*model.Subscription, error)
	Update(ctx context.Context, userID string, s *model.Subscription) (*model.Subscription, error)
	Delete(ctx context.Context, userID, id string) error
}

type subscriptionService struct {
	users  repository.UserRepository
	repo   repository.SubscriptionRepository
	logger zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(users repository.UserRepository, repo repository.SubscriptionRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		users:  users,
		repo:   repo,
		logger: logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) Resolve(ctx context.Context, subscriptionID string) (*model.User, *model.Subscription, error) {
	if err := validateSubscriptionID(subscriptionID); err != nil {
		return nil, nil, err
	}

	owner, err := s.users.FindUserBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", subscriptionID).Msg("Failed to resolve subscription owner")
		return nil, nil, err
	}
	if owner == nil {
		return nil, nil, ErrSubscriptionNotFound
	}

	sub := owner.FindSubscription(subscriptionID)
	if sub == nil {
		return nil, nil, ErrSubscriptionNotFound
	}
	return owner, sub, nil
}

func (s *subscriptionService) Create(ctx context.Context, userID string, sub *model.Subscription) (*model.Subscription, error) {
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}
	sub.ID = uuid.NewString()
	sub.UserID = userID
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) List(ctx context.Context, userID string) ([]model.Subscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list subscriptions")
		return nil, err
	}
	return subs, nil
}

// Get returns the subscription only when userID owns it.
func (s *subscriptionService) Get(ctx context.Context, userID, id string) (*model.Subscription, error) {
	if err := validateSubscriptionID(id); err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubscriptionByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to fetch subscription")
		return nil, err
	}
	if sub == nil || sub.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *subscriptionService) Update(ctx context.Context, userID string, sub *model.Subscription) (*model.Subscription, error) {
	existing, err := s.Get(ctx, userID, sub.ID)
	if err != nil {
		return nil, err
	}
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}
	sub.UserID = userID
	sub.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to update subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Delete(ctx context.Context, userID, id string) error {
	if err := validateSubscriptionID(id); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteSubscription(ctx, userID, id)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to delete subscription")
		return err
	}
	if !deleted {
		return ErrSubscriptionNotFound
	}
	return nil
}

func validateSubscriptionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidSubscriptionID
	}
	return nil
}

func validateSubscription(sub *model.Subscription) error {
	sub.ServiceName = strings.TrimSpace(sub.ServiceName)
	sub.Description = strings.TrimSpace(sub.Description)
	switch {
	case sub.ServiceName == "":
		return fmt.Errorf("%w: service name is required", ErrValidation)
	case sub.Cost < 0:
		return fmt.Errorf("%w: cost cannot be negative", ErrValidation)
	case !slices.Contains(model.BillingCycles, sub.BillingCycle):
		return fmt.Errorf("%w: unsupported billing cycle %q", ErrValidation, sub.BillingCycle)
	case !slices.Contains(model.Categories, sub.Category):
		return fmt.Errorf("%w: unsupported category %q", ErrValidation, sub.Category)
	case sub.NextPaymentDate.IsZero():
		return fmt.Errorf("%w: next payment date is required", ErrValidation)
	}
	return nil
}
