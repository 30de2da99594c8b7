package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/derekslarson/auth-service/federation"
	"github.com/derekslarson/auth-service/oauth2model"
)

// LoginViaExternalProvider records an anti-replay state on the attempt and
// returns the provider's authorize URL to send the browser to.
func (s *Service) LoginViaExternalProvider(ctx context.Context, xsrfToken, providerName string) (string, error) {
	location, err := s.loginViaExternalProvider(ctx, xsrfToken, providerName)
	if err != nil {
		return "", s.collapse("LoginViaExternalProvider", err, oauth2model.KindAccessDenied)
	}
	return location, nil
}

func (s *Service) loginViaExternalProvider(ctx context.Context, xsrfToken, providerName string) (string, error) {
	attempt, err := s.repos.Attempts.Get(ctx, xsrfToken)
	if err != nil {
		return "", errors.Wrap(err, "[Service.LoginViaExternalProvider] Attempts.Get")
	}

	if !verifyCSRFToken(attempt.Secret, xsrfToken) {
		return "", oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return "", errors.Wrap(err, "[Service.LoginViaExternalProvider] providers.Get")
	}

	providerState, err := newFlowSecret()
	if err != nil {
		return "", err
	}

	attempt.ExternalProvider = providerName
	attempt.ExternalProviderState = providerState
	if err := s.repos.Attempts.Update(ctx, attempt); err != nil {
		return "", errors.Wrap(err, "[Service.LoginViaExternalProvider] Attempts.Update")
	}

	return provider.AuthURL(providerState, federation.DefaultScopes), nil
}

// CompleteExternalProviderAuthFlow handles the provider's callback: it checks
// the anti-replay state, exchanges the provider code, verifies the returned
// identity, and mints an authorization code redirecting back to the client.
func (s *Service) CompleteExternalProviderAuthFlow(ctx context.Context, xsrfToken, providerCode, state string) (string, error) {
	location, err := s.completeExternalProviderAuthFlow(ctx, xsrfToken, providerCode, state)
	if err != nil {
		return "", s.collapse("CompleteExternalProviderAuthFlow", err, oauth2model.KindAccessDenied)
	}
	return location, nil
}

func (s *Service) completeExternalProviderAuthFlow(ctx context.Context, xsrfToken, providerCode, state string) (string, error) {
	attempt, err := s.repos.Attempts.Get(ctx, xsrfToken)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] Attempts.Get")
	}

	// A callback for an attempt that never asked for federated login is
	// hostile; burn the attempt.
	if attempt.ExternalProvider == "" {
		_ = s.repos.Attempts.Delete(ctx, attempt.XSRFToken)
		return "", oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	if state == "" || state != attempt.ExternalProviderState {
		return "", oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}

	provider, err := s.providers.Get(attempt.ExternalProvider)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] providers.Get")
	}

	providerToken, err := provider.Exchange(ctx, providerCode)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] Exchange")
	}

	identity, err := provider.Identity(ctx, providerToken)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] Identity")
	}

	user, err := s.repos.Users.ResolveByEmail(ctx, identity.Email)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] ResolveByEmail")
	}

	authorizationCode, err := newAuthorizationCode()
	if err != nil {
		return "", err
	}

	attempt.UserID = user.ID
	attempt.SetAuthorizationCode(authorizationCode, s.nowFunc())
	if err := s.repos.Attempts.Update(ctx, attempt); err != nil {
		return "", errors.Wrap(err, "[Service.CompleteExternalProviderAuthFlow] Attempts.Update")
	}

	return buildRedirectLocation(attempt.RedirectURI, authorizationCode, attempt.State)
}
