package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestSecretManagerCredentialStoreRequiresProject(t *testing.T) {
	_, err := NewSecretManagerCredentialStore(context.Background(), "")
	assert.Error(t, err)
}

func TestSecretManagerCredentialStoreClose(t *testing.T) {
	conn, err := grpc.NewClient("passthrough:///localhost:0", grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	store, err := NewSecretManagerCredentialStore(context.Background(), "subtrack-test", option.WithGRPCConn(conn))
	require.NoError(t, err)

	assert.Equal(t, "projects/subtrack-test/secrets/user-u1-google-calendar-token", store.secretPath("u1"))
	require.NoError(t, store.Close())
}
