package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/derekslarson/auth-service/jwks"
	"github.com/derekslarson/auth-service/oauth2model"
	"github.com/derekslarson/auth-service/sessions"
	"github.com/derekslarson/auth-service/token"
)

const (
	testIssuer   = "https://auth.example.com"
	testClientID = "client-1"
	testUserID   = "user-1"
	testScope    = "openid profile"
)

type testFixture struct {
	now          time.Time
	sessionRepo  sessions.Repo
	keystoreRepo jwks.Repo
	service      *token.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:          time.Now(),
		sessionRepo:  sessions.NewInMemoryRepo(),
		keystoreRepo: jwks.NewInMemoryRepo(),
	}

	service, err := token.NewService(f.sessionRepo, f.keystoreRepo, testIssuer,
		token.WithNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.NoError(t, service.RotateKeys(context.Background()))

	f.service = service
	return f
}

func requireKind(t *testing.T, err error, kind oauth2model.ErrorKind) {
	t.Helper()

	oauthErr, ok := oauth2model.AsError(err)
	require.True(t, ok, "expected a typed OAuth2 error, got %v", err)
	require.Equal(t, kind, oauthErr.Kind)
}

func TestGenerateAndVerify(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, 1200, pair.ExpiresIn)

	payload, err := f.service.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testClientID, payload.ClientID)
	require.Equal(t, testUserID, payload.Subject)
	require.Equal(t, testScope, payload.Scope)
	require.Equal(t, testIssuer, payload.Issuer)
	require.NotEmpty(t, payload.SessionID)
	require.NotEmpty(t, payload.TokenID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	f.now = f.now.Add(21 * time.Minute)
	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	requireKind(t, err, oauth2model.KindInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.VerifyAccessToken(context.Background(), "not.a.jwt")
	requireKind(t, err, oauth2model.KindInvalidToken)
}

func TestRefreshSlidesExpiry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	original, err := f.sessionRepo.GetByRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	f.now = f.now.Add(30 * 24 * time.Hour)
	refreshed, err := f.service.RefreshAccessToken(ctx, testClientID, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Empty(t, refreshed.RefreshToken)

	updated, err := f.sessionRepo.GetByRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.True(t, updated.RefreshTokenExpiresAt.After(original.RefreshTokenExpiresAt),
		"refresh must slide the expiry forward")

	// The new access token is bound to the same session lineage.
	payload, err := f.service.VerifyAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, original.SessionID, payload.SessionID)
}

func TestRefreshRejectsExpiredTokenAndDeletesSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	f.now = f.now.Add(181 * 24 * time.Hour)
	_, err = f.service.RefreshAccessToken(ctx, testClientID, pair.RefreshToken)
	requireKind(t, err, oauth2model.KindInvalidToken)

	_, err = f.sessionRepo.GetByRefreshToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestRefreshRejectsForeignClient(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	_, err = f.service.RefreshAccessToken(ctx, "other-client", pair.RefreshToken)
	requireKind(t, err, oauth2model.KindInvalidToken)
}

func TestRevokeTokens(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	require.NoError(t, f.service.RevokeTokens(ctx, testClientID, pair.RefreshToken))

	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	requireKind(t, err, oauth2model.KindInvalidToken)

	err = f.service.RevokeTokens(ctx, testClientID, pair.RefreshToken)
	requireKind(t, err, oauth2model.KindInvalidToken)
}

func TestRotationContinuity(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.service.GenerateAccessAndRefreshTokens(ctx, testClientID, testUserID, testScope)
	require.NoError(t, err)

	// The keystore holds two keys: one rotation keeps the signing key in the
	// set, a second pushes it out.
	require.NoError(t, f.service.RotateKeys(ctx))
	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err, "token must verify while its key is still in the keystore")

	require.NoError(t, f.service.RotateKeys(ctx))
	_, err = f.service.VerifyAccessToken(ctx, pair.AccessToken)
	requireKind(t, err, oauth2model.KindInvalidToken)
}

func TestRotationKeepsKeyCountFixed(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.keystoreRepo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, first.Keys, 2)
	require.Equal(t, int64(1), first.Version)

	require.NoError(t, f.service.RotateKeys(ctx))
	second, err := f.keystoreRepo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, second.Keys, 2)
	require.Equal(t, int64(2), second.Version)

	// Oldest dropped, newest appended.
	require.Equal(t, first.Keys[1].KeyID, second.Keys[0].KeyID)
	require.NotEqual(t, first.Keys[0].KeyID, second.Keys[0].KeyID)
}

func TestPublicJWKSExposesPublicHalvesOnly(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	set, err := f.service.PublicJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, set.Keys, 2)

	keystore, err := f.keystoreRepo.Get(ctx)
	require.NoError(t, err)

	for i, jwk := range set.Keys {
		require.Equal(t, keystore.Keys[i].KeyID, jwk.Kid)
		require.Equal(t, "RSA", jwk.Kty)
		require.NotEmpty(t, jwk.N)
		require.NotEmpty(t, jwk.E)
	}
}

func TestNewServiceValidation(t *testing.T) {
	_, err := token.NewService(nil, jwks.NewInMemoryRepo(), testIssuer)
	require.Error(t, err)

	_, err = token.NewService(sessions.NewInMemoryRepo(), nil, testIssuer)
	require.Error(t, err)

	_, err = token.NewService(sessions.NewInMemoryRepo(), jwks.NewInMemoryRepo(), "")
	require.Error(t, err)
}
