package service

import (
	"context"

	"subtrack/internal/model"
	"subtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminService covers account oversight. Mutating methods take the acting admin's id.
type AdminService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	// ToggleActive flips the account's active flag and returns the updated account.
	ToggleActive(ctx context.Context, actorID, id string) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, id string) (*model.User, error)
	Promote(ctx context.Context, actorID, id string) (*model.User, error)
	Demote(ctx context.Context, actorID, id string) (*model.User, error)
}

type adminService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

func NewAdminService(users repository.UserRepository, logger zerolog.Logger) AdminService {
	return &adminService{
		users:  users,
		logger: logger.With().Str("service", "AdminService").Logger(),
	}
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

func (s *adminService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidUserID
	}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to fetch user")
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *adminService) ToggleActive(ctx context.Context, actorID, id string) (*model.User, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, id, !u.IsActive); err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to toggle user status")
		return nil, err
	}
	u.IsActive = !u.IsActive
	s.logger.Info().Str("actor_id", actorID).Str("user_id", id).Bool("is_active", u.IsActive).Msg("User status changed")
	return u, nil
}

func (s *adminService) DeleteUser(ctx context.Context, actorID, id string) (*model.User, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	deleted, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		return nil, err
	}
	if !deleted {
		return nil, ErrUserNotFound
	}
	s.logger.Info().Str("actor_id", actorID).Str("user_id", id).Msg("User deleted")
	return u, nil
}

func (s *adminService) Promote(ctx context.Context, actorID, id string) (*model.User, error) {
	return s.setAdmin(ctx, actorID, id, true)
}

func (s *adminService) Demote(ctx context.Context, actorID, id string) (*model.User, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	return s.setAdmin(ctx, actorID, id, false)
}

func (s *adminService) setAdmin(ctx context.Context, actorID, id string, admin bool) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin != admin {
		if err := s.users.SetAdmin(ctx, id, admin); err != nil {
			s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to change admin role")
			return nil, err
		}
		u.IsAdmin = admin
	}
	s.logger.Info().Str("actor_id", actorID).Str("user_id", id).Bool("is_admin", admin).Msg("Admin role changed")
	return u, nil
}
