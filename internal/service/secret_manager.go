package service

import (
	"context"
	"encoding/json"
	"fmt"

	"subtrack/internal/model"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretManagerCredentialStore keeps each user's calendar token as a JSON secret,
// so tokens never live in the account database.
type SecretManagerCredentialStore struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretManagerCredentialStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManagerCredentialStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &SecretManagerCredentialStore{
		client:    client,
		projectID: projectID,
	}, nil
}

// Close releases the underlying Secret Manager connection.
func (s *SecretManagerCredentialStore) Close() error {
	return s.client.Close()
}

func (s *SecretManagerCredentialStore) secretPath(userID string) string {
	return fmt.Sprintf("projects/%s/secrets/user-%s-google-calendar-token", s.projectID, userID)
}

func (s *SecretManagerCredentialStore) Get(ctx context.Context, userID string) (*model.CalendarCredential, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretPath(userID) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to access secret version: %w", err)
	}

	var cred model.CalendarCredential
	if err := json.Unmarshal(result.Payload.Data, &cred); err != nil {
		return nil, fmt.Errorf("decode stored calendar credential: %w", err)
	}
	return &cred, nil
}

func (s *SecretManagerCredentialStore) Set(ctx context.Context, userID string, cred *model.CalendarCredential) error {
	merged, err := mergeWithStored(ctx, s, userID, cred)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode calendar credential: %w", err)
	}

	secretPath := s.secretPath(userID)
	_, err = s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: secretPath})
	if status.Code(err) == codes.NotFound {
		_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", s.projectID),
			SecretId: fmt.Sprintf("user-%s-google-calendar-token", userID),
			Secret: &secretmanagerpb.Secret{
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create secret: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to get secret: %w", err)
	}

	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secretPath,
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	})
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}
	return nil
}

func (s *SecretManagerCredentialStore) Delete(ctx context.Context, userID string) error {
	err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: s.secretPath(userID)})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
