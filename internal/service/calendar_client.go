package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"subtrack/internal/metrics"
	"subtrack/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// PrimaryCalendar is the calendar id Google maps to the account's default calendar.
const PrimaryCalendar = "primary"

type CalendarClient interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
}

// CalendarProvider opens a CalendarClient authorized by a user's stored credential.
type CalendarProvider interface {
	Client(ctx context.Context, userID string, cred *model.CalendarCredential) (CalendarClient, error)
}

type googleCalendarProvider struct {
	oauth2Config *oauth2.Config
	credentials  CredentialStore
	endpoint     string
	logger       zerolog.Logger
}

// NewGoogleCalendarProvider builds clients for the Google Calendar API. Refreshed access tokens are
// written back to credentials. A non-empty endpoint overrides the API base URL.
func NewGoogleCalendarProvider(oauth2Config *oauth2.Config, credentials CredentialStore, endpoint string, logger zerolog.Logger) CalendarProvider {
	return &googleCalendarProvider{
		oauth2Config: oauth2Config,
		credentials:  credentials,
		endpoint:     endpoint,
		logger:       logger.With().Str("service", "CalendarProvider").Logger(),
	}
}

func (p *googleCalendarProvider) Client(ctx context.Context, userID string, cred *model.CalendarCredential) (CalendarClient, error) {
	ts := &persistingTokenSource{
		ctx:         ctx,
		base:        p.oauth2Config.TokenSource(ctx, cred.Token()),
		userID:      userID,
		credentials: p.credentials,
		last:        cred.AccessToken,
		logger:      p.logger,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &googleCalendarClient{srv: srv}, nil
}

type googleCalendarClient struct {
	srv *calendar.Service
}

func (c *googleCalendarClient) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	start := time.Now()
	created, err := c.srv.Events.Insert(calendarID, event).Context(ctx).Do()
	metrics.ObserveCalendarLatency(start)
	if err != nil {
		return nil, classifyCalendarError(err)
	}
	return created, nil
}

// classifyCalendarError separates authorization failures, which the user can fix by reconnecting,
// from provider rejections.
func classifyCalendarError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token refresh rejected: %s", ErrNotAuthenticated, retrieveErr.ErrorCode)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 {
			return fmt.Errorf("%w: %s", ErrNotAuthenticated, apiErr.Message)
		}
		detail := apiErr.Message
		if detail == "" {
			detail = apiErr.Body
		}
		return &SchedulingError{StatusCode: apiErr.Code, Detail: detail, Err: err}
	}

	return &SchedulingError{Detail: err.Error(), Err: err}
}

// persistingTokenSource stores every newly minted access token for the user.
type persistingTokenSource struct {
	ctx         context.Context
	base        oauth2.TokenSource
	userID      string
	credentials CredentialStore
	logger      zerolog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.credentials.Set(s.ctx, s.userID, model.CredentialFromToken(tok)); err != nil {
			s.logger.Error().Err(err).Str("user_id", s.userID).Msg("Failed to persist refreshed calendar token")
		} else {
			s.logger.Debug().Str("user_id", s.userID).Msg("Persisted refreshed calendar token")
		}
	}
	return tok, nil
}
