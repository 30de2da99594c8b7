package authflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/derekslarson/auth-service/authflow"
)

func newAttempt(xsrfToken string) *authflow.Attempt {
	return &authflow.Attempt{
		XSRFToken:    xsrfToken,
		Secret:       "secret",
		ClientID:     "client-1",
		ResponseType: "code",
		RedirectURI:  "https://app.example.com/callback",
	}
}

func TestCreateGetDelete(t *testing.T) {
	repo := authflow.NewInMemoryRepo(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("token-1")))
	require.ErrorIs(t, repo.Create(ctx, newAttempt("token-1")), authflow.ErrAlreadyExists)

	attempt, err := repo.Get(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, "client-1", attempt.ClientID)

	require.NoError(t, repo.Delete(ctx, "token-1"))
	_, err = repo.Get(ctx, "token-1")
	require.ErrorIs(t, err, authflow.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "token-1"), authflow.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	repo := authflow.NewInMemoryRepo(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("token-1")))

	attempt, err := repo.Get(ctx, "token-1")
	require.NoError(t, err)
	attempt.UserID = "mutated"

	again, err := repo.Get(ctx, "token-1")
	require.NoError(t, err)
	require.Empty(t, again.UserID)
}

func TestClaimByAuthorizationCode(t *testing.T) {
	repo := authflow.NewInMemoryRepo(time.Minute)
	ctx := context.Background()

	attempt := newAttempt("token-1")
	require.NoError(t, repo.Create(ctx, attempt))

	attempt.SetAuthorizationCode("auth-code-1", time.Now())
	require.NoError(t, repo.Update(ctx, attempt))

	claimed, err := repo.ClaimByAuthorizationCode(ctx, "auth-code-1")
	require.NoError(t, err)
	require.Equal(t, "token-1", claimed.XSRFToken)

	// Claim is fetch-and-delete: the second claim and the primary lookup both miss.
	_, err = repo.ClaimByAuthorizationCode(ctx, "auth-code-1")
	require.ErrorIs(t, err, authflow.ErrNotFound)
	_, err = repo.Get(ctx, "token-1")
	require.ErrorIs(t, err, authflow.ErrNotFound)
}

func TestUpdateReindexesAuthorizationCode(t *testing.T) {
	repo := authflow.NewInMemoryRepo(time.Minute)
	ctx := context.Background()

	attempt := newAttempt("token-1")
	require.NoError(t, repo.Create(ctx, attempt))

	attempt.SetAuthorizationCode("code-old", time.Now())
	require.NoError(t, repo.Update(ctx, attempt))

	attempt.SetAuthorizationCode("code-new", time.Now())
	require.NoError(t, repo.Update(ctx, attempt))

	_, err := repo.ClaimByAuthorizationCode(ctx, "code-old")
	require.ErrorIs(t, err, authflow.ErrNotFound)

	claimed, err := repo.ClaimByAuthorizationCode(ctx, "code-new")
	require.NoError(t, err)
	require.Equal(t, "token-1", claimed.XSRFToken)
}

func TestAttemptsExpire(t *testing.T) {
	repo := authflow.NewInMemoryRepo(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAttempt("token-1")))

	require.Eventually(t, func() bool {
		_, err := repo.Get(ctx, "token-1")
		return err != nil
	}, time.Second, 20*time.Millisecond)
}

func TestSetCodesAreMutuallyExclusive(t *testing.T) {
	attempt := newAttempt("token-1")
	now := time.Now()

	attempt.SetConfirmationCode("123456", now)
	require.Equal(t, "123456", attempt.ConfirmationCode)
	require.Empty(t, attempt.AuthorizationCode)

	attempt.SetAuthorizationCode("auth-code", now)
	require.Equal(t, "auth-code", attempt.AuthorizationCode)
	require.Empty(t, attempt.ConfirmationCode)
	require.True(t, attempt.ConfirmationCodeCreatedAt.IsZero())
}
