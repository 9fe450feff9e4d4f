package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/metrics"
	"subtrack/internal/model"
	"subtrack/internal/pubsub"
	"subtrack/internal/repository"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
)

const reminderDuration = time.Hour

// ReminderService turns a subscription's next payment into a calendar event.
type ReminderService interface {
	// ScheduleReminder creates one calendar event for the subscription on userID's calendar.
	// Every call inserts a new event.
	ScheduleReminder(ctx context.Context, userID, subscriptionID string) (*model.ScheduledReminder, error)
	// LastReminder returns the latest recorded event for the subscription.
	// It returns ErrReminderNotRecorded when the ledger is disabled or holds nothing.
	LastReminder(ctx context.Context, userID, subscriptionID string) (*model.ReminderLedgerEntry, error)
}

type ReminderOptions struct {
	Location *time.Location
	Timeout  time.Duration
	Planner  OverridePlanner
	// Ledger is optional. When set, the last event per subscription is recorded.
	Ledger repository.ReminderLedgerRepository
	// Publisher and Topic are optional. When both are set a reminder.scheduled message is sent.
	Publisher pubsub.Publisher
	Topic     string
}

type reminderService struct {
	credentials   CredentialStore
	subscriptions SubscriptionService
	calendars     CalendarProvider
	opts          ReminderOptions
	now           func() time.Time
	logger        zerolog.Logger
}

func NewReminderService(credentials CredentialStore, subscriptions SubscriptionService, calendars CalendarProvider, opts ReminderOptions, logger zerolog.Logger) ReminderService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Planner == nil {
		opts.Planner = FixedOverrides{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &reminderService{
		credentials:   credentials,
		subscriptions: subscriptions,
		calendars:     calendars,
		opts:          opts,
		now:           time.Now,
		logger:        logger.With().Str("service", "ReminderService").Logger(),
	}
}

func (s *reminderService) ScheduleReminder(ctx context.Context, userID, subscriptionID string) (*model.ScheduledReminder, error) {
	cred, err := s.credentials.Get(ctx, userID)
	if errors.Is(err, ErrCredentialNotFound) {
		metrics.ObserveReminder("not_authenticated")
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load calendar credential")
		return nil, err
	}
	if !cred.Usable(s.now()) {
		metrics.ObserveReminder("not_authenticated")
		return nil, fmt.Errorf("%w: access token expired and no refresh token is stored", ErrNotAuthenticated)
	}

	owner, sub, err := s.subscriptions.Resolve(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if owner.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}

	reminder := BuildReminder(owner, sub, s.opts.Location, s.opts.Planner)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	client, err := s.calendars.Client(callCtx, userID, cred)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to open calendar client")
		return nil, err
	}
	created, err := client.InsertEvent(callCtx, PrimaryCalendar, reminderEvent(reminder))
	if err != nil {
		metrics.ObserveReminder("failed")
		var schedErr *SchedulingError
		if errors.As(err, &schedErr) {
			s.logger.Error().Err(err).
				Int("status_code", schedErr.StatusCode).
				Str("subscription_id", subscriptionID).
				Msg("Calendar rejected reminder")
		} else {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Calendar authorization failed")
		}
		return nil, err
	}
	reminder.EventID = created.Id
	reminder.HTMLLink = created.HtmlLink

	metrics.ObserveReminder("ok")
	s.logger.Info().
		Str("user_id", userID).
		Str("subscription_id", subscriptionID).
		Str("event_id", created.Id).
		Msg("Reminder scheduled")

	s.record(ctx, reminder)
	s.publish(ctx, reminder)
	return reminder, nil
}

func (s *reminderService) LastReminder(ctx context.Context, userID, subscriptionID string) (*model.ReminderLedgerEntry, error) {
	owner, _, err := s.subscriptions.Resolve(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if owner.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	if s.opts.Ledger == nil {
		return nil, ErrReminderNotRecorded
	}

	entry, err := s.opts.Ledger.Last(ctx, subscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", subscriptionID).Msg("Failed to read reminder ledger")
		return nil, err
	}
	if entry == nil {
		return nil, ErrReminderNotRecorded
	}
	return entry, nil
}

// BuildReminder lays out the calendar event for the subscription's next payment.
// The event starts exactly at the payment time and lasts one hour.
func BuildReminder(owner *model.User, sub *model.Subscription, loc *time.Location, planner OverridePlanner) *model.ScheduledReminder {
	start := sub.NextPaymentDate.In(loc)
	return &model.ScheduledReminder{
		SubscriptionID: sub.ID,
		UserID:         owner.UserID,
		Summary:        fmt.Sprintf("Payment Reminder: %s", sub.ServiceName),
		Description:    fmt.Sprintf("Reminder for your %s subscription payment of $%.2f.", sub.ServiceName, sub.Cost),
		Start:          start,
		End:            start.Add(reminderDuration),
		TimeZone:       loc.String(),
		Overrides:      planner.Plan(ReminderPolicyFor(owner)),
	}
}

func reminderEvent(r *model.ScheduledReminder) *calendar.Event {
	overrides := make([]*calendar.EventReminder, 0, len(r.Overrides))
	for _, o := range r.Overrides {
		overrides = append(overrides, &calendar.EventReminder{Method: string(o.Method), Minutes: o.Minutes})
	}
	return &calendar.Event{
		Summary:     r.Summary,
		Description: r.Description,
		Start:       &calendar.EventDateTime{DateTime: r.Start.Format(time.RFC3339Nano), TimeZone: r.TimeZone},
		End:         &calendar.EventDateTime{DateTime: r.End.Format(time.RFC3339Nano), TimeZone: r.TimeZone},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func (s *reminderService) record(ctx context.Context, r *model.ScheduledReminder) {
	if s.opts.Ledger == nil {
		return
	}
	err := s.opts.Ledger.Record(ctx, &model.ReminderLedgerEntry{
		SubscriptionID: r.SubscriptionID,
		UserID:         r.UserID,
		EventID:        r.EventID,
		HTMLLink:       r.HTMLLink,
		ScheduledAt:    s.now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", r.SubscriptionID).Msg("Failed to record reminder in ledger")
	}
}

// ReminderScheduledMessage is published after a reminder event is created.
type ReminderScheduledMessage struct {
	Type        string                   `json:"type"`
	Reminder    *model.ScheduledReminder `json:"reminder"`
	ScheduledAt time.Time                `json:"scheduled_at"`
}

func (s *reminderService) publish(ctx context.Context, r *model.ScheduledReminder) {
	if s.opts.Publisher == nil || s.opts.Topic == "" {
		return
	}
	payload, err := json.Marshal(ReminderScheduledMessage{Type: "reminder.scheduled", Reminder: r, ScheduledAt: s.now()})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode reminder.scheduled message")
		return
	}
	id, err := s.opts.Publisher.Publish(ctx, s.opts.Topic, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", s.opts.Topic).Msg("Failed to publish reminder.scheduled")
		return
	}
	s.logger.Debug().Str("message_id", id).Msg("Published reminder.scheduled")
}
