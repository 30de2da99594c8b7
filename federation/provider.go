// Package federation holds the external identity provider clients used for
// federated login. Two shapes exist: an OIDC client driven by provider
// discovery, and an endpoint client assembled from raw authorize/token/
// userinfo URLs for providers without a usable OIDC surface.
package federation

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested from every provider on federated login.
var DefaultScopes = []string{"openid", "email", "profile"}

var ErrProviderMisconfigured = errors.New("identity provider misconfigured")

// Identity is the subset of provider claims the auth flow needs to
// resolve-or-create a platform user.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Provider is the contract consumed by the auth service for federated login.
type Provider interface {
	Name() string
	AuthURL(state string, scopes []string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// Registry maps provider names to configured clients.
type Registry map[string]Provider

// Get returns the provider registered under name.
func (r Registry) Get(name string) (Provider, error) {
	provider, ok := r[name]
	if !ok {
		return nil, errors.Errorf("unknown identity provider %q", name)
	}
	return provider, nil
}
