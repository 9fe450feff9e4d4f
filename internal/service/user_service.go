package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"subtrack/internal/model"
	"subtrack/internal/repository"
	"subtrack/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxNameLength     = 100
	minPasswordLength = 6
)

type UserService interface {
	// Register creates an account and returns it with a session token.
	Register(ctx context.Context, name, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdatePreferences(ctx context.Context, id string, prefs model.UserPreferences, remindersEnabled bool) (*model.User, error)
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, jwtSecret string, jwtTTL time.Duration, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		now:       time.Now,
		logger:    logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	switch {
	case name == "" || len([]rune(name)) > maxNameLength:
		return nil, "", fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxNameLength)
	case !validEmail(email):
		return nil, "", fmt.Errorf("%w: invalid email", ErrValidation)
	case len(password) < minPasswordLength:
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u := &model.User{
		UserID:           uuid.NewString(),
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		IsActive:         true,
		RemindersEnabled: true,
		Preferences:      model.DefaultPreferences(),
		Subscriptions:    []model.Subscription{},
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, "", ErrEmailAlreadyRegistered
		}
		s.logger.Error().Err(err).Msg("Failed to create user")
		return nil, "", err
	}

	token, err := util.IssueJWT(u.UserID, u.Email, u.IsAdmin, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info().Str("user_id", u.UserID).Msg("User registered")
	return u, token, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch user for login")
		return nil, "", err
	}
	if u == nil || !util.CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, "", ErrAccountInactive
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, u.UserID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.UserID).Msg("Failed to record last login")
	} else {
		u.LastLogin = &now
	}

	token, err := util.IssueJWT(u.UserID, u.Email, u.IsAdmin, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, id string, prefs model.UserPreferences, remindersEnabled bool) (*model.User, error) {
	if prefs.ReminderDays < 1 || prefs.ReminderDays > 28 {
		return nil, fmt.Errorf("%w: reminder days must be between 1 and 28", ErrValidation)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePreferences(ctx, id, prefs, remindersEnabled); err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to update preferences")
		return nil, err
	}
	u.Preferences = prefs
	u.RemindersEnabled = remindersEnabled
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
