package federation

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OIDCProvider is a federated login client for providers exposing standard
// OIDC discovery. The provider's ID token signature is verified against its
// published keys before any claim is trusted.
type OIDCProvider struct {
	name     string
	provider *oidc.Provider
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ Provider = (*OIDCProvider)(nil)

// NewOIDCProvider runs OIDC discovery against issuerURL and builds a client.
func NewOIDCProvider(ctx context.Context, name, issuerURL, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrProviderMisconfigured
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewOIDCProvider] discovery failed for %q", issuerURL)
	}

	return &OIDCProvider{
		name:     name,
		provider: provider,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (p *OIDCProvider) Name() string {
	return p.name
}

func (p *OIDCProvider) AuthURL(state string, scopes []string) string {
	cfg := *p.config
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(state)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	t, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Exchange]")
	}
	return t, nil
}

func (p *OIDCProvider) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[OIDCProvider.Identity] no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Identity] id_token verification failed")
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Identity] failed to extract claims")
	}
	if claims.Email == "" {
		return nil, errors.New("[OIDCProvider.Identity] provider returned no email claim")
	}

	return &Identity{Subject: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}
