package service

import (
	"context"
	"testing"
	"time"

	"subtrack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewDatabaseCredentialStore(newFakeStore())

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	expiry := time.Now().Add(time.Hour).UTC()
	require.NoError(t, store.Set(ctx, "user-1", &model.CalendarCredential{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Scope:        "https://www.googleapis.com/auth/calendar",
		Expiry:       expiry,
	}))

	// Re-consent without a refresh token keeps the stored one.
	require.NoError(t, store.Set(ctx, "user-1", &model.CalendarCredential{AccessToken: "a2"}))
	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, "r1", got.RefreshToken)
	assert.Equal(t, "https://www.googleapis.com/auth/calendar", got.Scope)

	// Credentials are isolated per user.
	_, err = store.Get(ctx, "user-2")
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, store.Delete(ctx, "user-1"))
	_, err = store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
