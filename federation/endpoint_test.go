package federation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/derekslarson/auth-service/federation"
)

func newEndpointProvider(t *testing.T, userInfoURL string) *federation.EndpointProvider {
	t.Helper()

	provider, err := federation.NewEndpointProvider("slack", federation.EndpointConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://auth.example.com/oauth2/callback",
		AuthorizeURL: "https://idp.example.com/authorize",
		TokenURL:     "https://idp.example.com/token",
		UserInfoURL:  userInfoURL,
	})
	require.NoError(t, err)
	return provider
}

func TestNewEndpointProviderRequiresFullConfig(t *testing.T) {
	_, err := federation.NewEndpointProvider("slack", federation.EndpointConfig{ClientID: "only-id"})
	require.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestEndpointProviderAuthURL(t *testing.T) {
	provider := newEndpointProvider(t, "https://idp.example.com/userinfo")

	authURL, err := url.Parse(provider.AuthURL("anti-replay-state", federation.DefaultScopes))
	require.NoError(t, err)
	require.Equal(t, "idp.example.com", authURL.Host)
	require.Equal(t, "anti-replay-state", authURL.Query().Get("state"))
	require.Equal(t, "client-id", authURL.Query().Get("client_id"))
	require.Equal(t, "openid email profile", authURL.Query().Get("scope"))
}

func TestEndpointProviderIdentity(t *testing.T) {
	userInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"subject-1","email":"john.doe@example.com","name":"John Doe"}`))
	}))
	defer userInfo.Close()

	provider := newEndpointProvider(t, userInfo.URL)
	identity, err := provider.Identity(context.Background(), &oauth2.Token{AccessToken: "at"})
	require.NoError(t, err)
	require.Equal(t, "subject-1", identity.Subject)
	require.Equal(t, "john.doe@example.com", identity.Email)
	require.Equal(t, "John Doe", identity.Name)
}

func TestEndpointProviderIdentityNumericIDFallback(t *testing.T) {
	userInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":12345,"email":"john.doe@example.com"}`))
	}))
	defer userInfo.Close()

	provider := newEndpointProvider(t, userInfo.URL)
	identity, err := provider.Identity(context.Background(), &oauth2.Token{AccessToken: "at"})
	require.NoError(t, err)
	require.Equal(t, "12345", identity.Subject)
}

func TestEndpointProviderIdentityRequiresEmail(t *testing.T) {
	userInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"subject-1"}`))
	}))
	defer userInfo.Close()

	provider := newEndpointProvider(t, userInfo.URL)
	_, err := provider.Identity(context.Background(), &oauth2.Token{AccessToken: "at"})
	require.Error(t, err)
}

func TestEndpointProviderIdentityGatewayError(t *testing.T) {
	userInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer userInfo.Close()

	provider := newEndpointProvider(t, userInfo.URL)
	_, err := provider.Identity(context.Background(), &oauth2.Token{AccessToken: "at"})
	require.Error(t, err)
}

func TestRegistryGet(t *testing.T) {
	provider := newEndpointProvider(t, "https://idp.example.com/userinfo")
	registry := federation.Registry{"slack": provider}

	got, err := registry.Get("slack")
	require.NoError(t, err)
	require.Equal(t, "slack", got.Name())

	_, err = registry.Get("missing")
	require.Error(t, err)
}
