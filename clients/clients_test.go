package clients_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/derekslarson/auth-service/clients"
)

func testClient(t *testing.T) *clients.Client {
	t.Helper()

	hash, err := clients.HashSecret("test-secret")
	require.NoError(t, err)

	return &clients.Client{
		ID:          "client-1",
		Name:        "Test Client",
		SecretHash:  hash,
		RedirectURI: "https://app.example.com/callback",
		Scopes:      []string{"openid", "profile", "messages.read"},
		CreatedAt:   time.Now(),
	}
}

func TestVerifySecret(t *testing.T) {
	client := testClient(t)

	require.True(t, client.VerifySecret("test-secret"))
	require.False(t, client.VerifySecret("wrong-secret"))
	require.False(t, client.VerifySecret(""))
}

func TestValidateScopes(t *testing.T) {
	client := testClient(t)

	require.NoError(t, client.ValidateScopes("openid profile"))
	require.NoError(t, client.ValidateScopes(""))
	require.ErrorIs(t, client.ValidateScopes("openid admin.write"), clients.ErrInvalidScope)
}

func TestInMemoryRepo(t *testing.T) {
	repo := clients.NewInMemoryRepo()
	ctx := context.Background()
	client := testClient(t)

	require.NoError(t, repo.Create(ctx, client))
	require.ErrorIs(t, repo.Create(ctx, client), clients.ErrAlreadyExists)

	got, err := repo.Get(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, client.Name, got.Name)

	require.NoError(t, repo.Delete(ctx, client.ID))
	_, err = repo.Get(ctx, client.ID)
	require.ErrorIs(t, err, clients.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, client.ID), clients.ErrNotFound)
}
