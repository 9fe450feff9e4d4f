package service

import (
	"context"
	"errors"

	"subtrack/internal/model"
	"subtrack/internal/repository"
)

// CredentialStore holds Google Calendar credentials keyed by the user they belong to.
type CredentialStore interface {
	// Get returns ErrCredentialNotFound when the user never connected a calendar.
	Get(ctx context.Context, userID string) (*model.CalendarCredential, error)
	// Set stores cred. An empty refresh token keeps the previously stored one.
	Set(ctx context.Context, userID string, cred *model.CalendarCredential) error
	Delete(ctx context.Context, userID string) error
}

type databaseCredentialStore struct {
	repo repository.CredentialRepository
}

// NewDatabaseCredentialStore keeps credentials alongside the account record.
func NewDatabaseCredentialStore(repo repository.CredentialRepository) CredentialStore {
	return &databaseCredentialStore{repo: repo}
}

func (s *databaseCredentialStore) Get(ctx context.Context, userID string) (*model.CalendarCredential, error) {
	cred, err := s.repo.GetCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

func (s *databaseCredentialStore) Set(ctx context.Context, userID string, cred *model.CalendarCredential) error {
	merged, err := mergeWithStored(ctx, s, userID, cred)
	if err != nil {
		return err
	}
	return s.repo.UpsertCredential(ctx, userID, merged)
}

func (s *databaseCredentialStore) Delete(ctx context.Context, userID string) error {
	return s.repo.DeleteCredential(ctx, userID)
}

func mergeWithStored(ctx context.Context, store CredentialStore, userID string, cred *model.CalendarCredential) (*model.CalendarCredential, error) {
	if cred.RefreshToken != "" && cred.Scope != "" {
		return cred, nil
	}
	existing, err := store.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrCredentialNotFound) {
		return nil, err
	}
	return existing.Merge(cred), nil
}
