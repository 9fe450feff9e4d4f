package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseOAuthStateRepo(t *testing.T, repo OAuthStateRepository) {
	t.Helper()
	ctx := context.Background()
	state := "state-" + uuid.NewString()
	userID := uuid.NewString()

	pending, err := repo.HasPendingState(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, repo.SaveState(ctx, state, userID, time.Minute))

	got, err := repo.LookupState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	pending, err = repo.HasPendingState(ctx, userID)
	require.NoError(t, err)
	assert.True(t, pending)

	// Lookup does not consume.
	got, err = repo.LookupState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	require.NoError(t, repo.ConsumeState(ctx, state))
	got, err = repo.LookupState(ctx, state)
	require.NoError(t, err)
	assert.Empty(t, got)

	pending, err = repo.HasPendingState(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pending)

	code := "code-" + uuid.NewString()
	ok, err := repo.ClaimCode(ctx, code, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimCode(ctx, code, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim of the same code must fail")

	require.NoError(t, repo.ReleaseCode(ctx, code))
	ok, err = repo.ClaimCode(ctx, code, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released code can be claimed again")

	exchanging, err := repo.IsExchanging(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exchanging)

	require.NoError(t, repo.MarkExchanging(ctx, userID, time.Minute))
	exchanging, err = repo.IsExchanging(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exchanging)

	require.NoError(t, repo.ClearExchanging(ctx, userID))
	exchanging, err = repo.IsExchanging(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exchanging)
}

func TestMemoryOAuthStateRepo(t *testing.T) {
	exerciseOAuthStateRepo(t, NewMemoryOAuthStateRepo())
}

func TestMemoryOAuthStateRepoExpiry(t *testing.T) {
	repo := NewMemoryOAuthStateRepo().(*memoryOAuthStateRepo)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.SaveState(ctx, "s1", "user-1", time.Minute))
	ok, err := repo.ClaimCode(ctx, "c1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)

	got, err := repo.LookupState(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)

	pending, err := repo.HasPendingState(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, pending)

	ok, err = repo.ClaimCode(ctx, "c1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisOAuthStateRepo(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set, skip redis integration test")
	}

	client, err := ConnectRedis(context.Background(), url)
	require.NoError(t, err)
	defer client.Close()

	exerciseOAuthStateRepo(t, NewRedisOAuthStateRepo(client))
}

func TestCodeKeyHidesCode(t *testing.T) {
	key := codeKey("4/0AbCdEf")
	assert.NotContains(t, key, "4/0AbCdEf")
	assert.Equal(t, key, codeKey("4/0AbCdEf"))
}
