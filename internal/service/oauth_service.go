package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/config"
	"subtrack/internal/metrics"
	"subtrack/internal/model"
	"subtrack/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// AuthorizationStatus is where a user stands in the calendar connection flow.
type AuthorizationStatus string

const (
	StatusUnauthenticated        AuthorizationStatus = "unauthenticated"
	StatusAuthorizationRequested AuthorizationStatus = "authorization_requested"
	StatusCodeReceived           AuthorizationStatus = "code_received"
	StatusTokensIssued           AuthorizationStatus = "tokens_issued"
)

// OAuthService runs the Google consent flow that connects a user's calendar.
type OAuthService interface {
	// BeginAuthorization returns the consent URL the user should be redirected to.
	BeginAuthorization(ctx context.Context, userID string) (string, error)
	// CompleteAuthorization exchanges a one-time code for tokens and stores them for the user that started the flow.
	CompleteAuthorization(ctx context.Context, code, state string) (*model.CalendarCredential, error)
	Status(ctx context.Context, userID string) (AuthorizationStatus, error)
	Disconnect(ctx context.Context, userID string) error
}

type OAuthOptions struct {
	StateTTL        time.Duration
	CodeTTL         time.Duration
	ExchangeTimeout time.Duration
}

type oauthService struct {
	oauth2Config *oauth2.Config
	states       repository.OAuthStateRepository
	credentials  CredentialStore
	opts         OAuthOptions
	now          func() time.Time
	logger       zerolog.Logger
}

// NewGoogleOAuthConfig builds the oauth2 client configuration for Google Calendar access.
func NewGoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

func NewOAuthService(oauth2Config *oauth2.Config, states repository.OAuthStateRepository, credentials CredentialStore, opts OAuthOptions, logger zerolog.Logger) OAuthService {
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = time.Hour
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 10 * time.Second
	}
	return &oauthService{
		oauth2Config: oauth2Config,
		states:       states,
		credentials:  credentials,
		opts:         opts,
		now:          time.Now,
		logger:       logger.With().Str("service", "OAuthService").Logger(),
	}
}

func (s *oauthService) BeginAuthorization(ctx context.Context, userID string) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	if err := s.states.SaveState(ctx, state, userID, s.opts.StateTTL); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store oauth state")
		return "", err
	}

	return s.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (s *oauthService) CompleteAuthorization(ctx context.Context, code, state string) (*model.CalendarCredential, error) {
	if code == "" {
		return nil, ErrMissingAuthCode
	}

	// The code is claimed before anything else so a replay never reaches the provider.
	claimed, err := s.states.ClaimCode(ctx, code, s.opts.CodeTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to claim authorization code")
		return nil, err
	}
	if !claimed {
		metrics.ObserveOAuthExchange("replayed")
		s.logger.Warn().Msg("Authorization code replayed")
		return nil, &AuthExchangeError{Cause: ErrCodeAlreadyUsed}
	}

	userID, err := s.states.LookupState(ctx, state)
	if err != nil {
		s.release(ctx, code)
		s.logger.Error().Err(err).Msg("Failed to look up oauth state")
		return nil, err
	}
	if userID == "" {
		s.release(ctx, code)
		metrics.ObserveOAuthExchange("invalid_state")
		return nil, &AuthExchangeError{Cause: ErrInvalidState}
	}

	if err := s.states.MarkExchanging(ctx, userID, s.opts.ExchangeTimeout); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to mark code exchange")
	}
	defer func() {
		if err := s.states.ClearExchanging(context.WithoutCancel(ctx), userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to clear code exchange")
		}
	}()

	exchangeCtx, cancel := context.WithTimeout(ctx, s.opts.ExchangeTimeout)
	defer cancel()
	tok, err := s.oauth2Config.Exchange(exchangeCtx, code)
	if err != nil {
		s.release(ctx, code)
		metrics.ObserveOAuthExchange("failed")
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Authorization code exchange failed")
		return nil, &AuthExchangeError{Cause: err}
	}

	cred := model.CredentialFromToken(tok)
	if err := s.credentials.Set(ctx, userID, cred); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store calendar credential")
		return nil, err
	}
	if err := s.states.ConsumeState(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to consume oauth state")
	}

	metrics.ObserveOAuthExchange("ok")
	s.logger.Info().Str("user_id", userID).Bool("refresh_token", cred.RefreshToken != "").Msg("Calendar connected")
	return cred, nil
}

func (s *oauthService) Status(ctx context.Context, userID string) (AuthorizationStatus, error) {
	cred, err := s.credentials.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrCredentialNotFound) {
		return "", err
	}
	if cred.Usable(s.now()) {
		return StatusTokensIssued, nil
	}

	exchanging, err := s.states.IsExchanging(ctx, userID)
	if err != nil {
		return "", err
	}
	if exchanging {
		return StatusCodeReceived, nil
	}

	pending, err := s.states.HasPendingState(ctx, userID)
	if err != nil {
		return "", err
	}
	if pending {
		return StatusAuthorizationRequested, nil
	}
	return StatusUnauthenticated, nil
}

func (s *oauthService) Disconnect(ctx context.Context, userID string) error {
	if err := s.credentials.Delete(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete calendar credential")
		return err
	}
	return nil
}

func (s *oauthService) release(ctx context.Context, code string) {
	if err := s.states.ReleaseCode(ctx, code); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release authorization code")
	}
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
