package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/derekslarson/auth-service/sessions"
)

func newSession(clientID, sessionID, refreshToken string) *sessions.Session {
	now := time.Now()
	return &sessions.Session{
		ClientID:              clientID,
		SessionID:             sessionID,
		RefreshToken:          refreshToken,
		UserID:                "user-1",
		Scope:                 "openid",
		CreatedAt:             now,
		RefreshTokenCreatedAt: now,
		RefreshTokenExpiresAt: now.Add(180 * 24 * time.Hour),
	}
}

func TestCreateAndLookups(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	session := newSession("client-1", "session-1", "refresh-1")
	require.NoError(t, repo.Create(ctx, session))
	require.ErrorIs(t, repo.Create(ctx, session), sessions.ErrAlreadyExists)

	byKey, err := repo.Get(ctx, "client-1", "session-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", byKey.UserID)

	byToken, err := repo.GetByRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "session-1", byToken.SessionID)

	_, err = repo.Get(ctx, "client-1", "missing")
	require.ErrorIs(t, err, sessions.ErrNotFound)
	_, err = repo.GetByRefreshToken(ctx, "missing")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestUpdateRefreshTokenExpiry(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	session := newSession("client-1", "session-1", "refresh-1")
	require.NoError(t, repo.Create(ctx, session))

	slid := session.RefreshTokenExpiresAt.Add(30 * 24 * time.Hour)
	require.NoError(t, repo.UpdateRefreshTokenExpiry(ctx, "client-1", "session-1", slid))

	got, err := repo.Get(ctx, "client-1", "session-1")
	require.NoError(t, err)
	require.True(t, got.RefreshTokenExpiresAt.Equal(slid))
}

func TestDeleteRemovesBothIndexes(t *testing.T) {
	repo := sessions.NewInMemoryRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("client-1", "session-1", "refresh-1")))
	require.NoError(t, repo.Delete(ctx, "client-1", "session-1"))

	_, err := repo.Get(ctx, "client-1", "session-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)
	_, err = repo.GetByRefreshToken(ctx, "refresh-1")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, "client-1", "session-1"), sessions.ErrNotFound)
}
