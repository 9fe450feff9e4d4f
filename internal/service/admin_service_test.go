package service

import (
	"context"
	"testing"

	"subtrack/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	admin := &model.User{UserID: uuid.NewString(), Email: "root@example.com", IsAdmin: true, IsActive: true}
	member := &model.User{UserID: uuid.NewString(), Email: "m@example.com", IsActive: true}
	require.NoError(t, store.CreateUser(ctx, admin))
	require.NoError(t, store.CreateUser(ctx, member))
	svc := NewAdminService(store, zerolog.Nop())

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	toggled, err := svc.ToggleActive(ctx, admin.UserID, member.UserID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	toggled, err = svc.ToggleActive(ctx, admin.UserID, member.UserID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	promoted, err := svc.Promote(ctx, admin.UserID, member.UserID)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
	demoted, err := svc.Demote(ctx, admin.UserID, member.UserID)
	require.NoError(t, err)
	assert.False(t, demoted.IsAdmin)

	_, err = svc.Demote(ctx, admin.UserID, admin.UserID)
	assert.ErrorIs(t, err, ErrSelfModification)
	_, err = svc.DeleteUser(ctx, admin.UserID, admin.UserID)
	assert.ErrorIs(t, err, ErrSelfModification)

	_, err = svc.DeleteUser(ctx, admin.UserID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.DeleteUser(ctx, admin.UserID, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	deleted, err := svc.DeleteUser(ctx, admin.UserID, member.UserID)
	require.NoError(t, err)
	assert.Equal(t, member.UserID, deleted.UserID)
	_, err = svc.GetUser(ctx, member.UserID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
