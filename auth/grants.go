package auth

import (
	"context"

	"github.com/derekslarson/auth-service/authflow"
	"github.com/derekslarson/auth-service/oauth2model"
	"github.com/derekslarson/auth-service/token"
	"github.com/derekslarson/auth-service/token/keys"
	"github.com/pkg/errors"
)

// HandleAuthorizationCodeGrant redeems an authorization code for a token
// pair. The attempt is claimed - atomically fetched and deleted - before any
// check runs, so a code redeems at most once no matter how the concurrent
// second redemption interleaves.
func (s *Service) HandleAuthorizationCodeGrant(ctx context.Context, clientID, authorizationCode, redirectURI, codeVerifier string) (*oauth2model.TokenResponse, error) {
	response, err := s.handleAuthorizationCodeGrant(ctx, clientID, authorizationCode, redirectURI, codeVerifier)
	if err != nil {
		return nil, s.collapse("HandleAuthorizationCodeGrant", err, oauth2model.KindServerError)
	}
	return response, nil
}

func (s *Service) handleAuthorizationCodeGrant(ctx context.Context, clientID, authorizationCode, redirectURI, codeVerifier string) (*oauth2model.TokenResponse, error) {
	attempt, err := s.repos.Attempts.ClaimByAuthorizationCode(ctx, authorizationCode)
	if err != nil {
		if errors.Is(err, authflow.ErrNotFound) {
			return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "invalid or expired authorization code")
		}
		return nil, errors.Wrap(err, "[Service.HandleAuthorizationCodeGrant] ClaimByAuthorizationCode")
	}

	if attempt.ClientID != clientID {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "authorization code was not issued to client")
	}
	if attempt.RedirectURI != redirectURI {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "redirect_uri mismatch")
	}

	if attempt.CodeChallenge != "" {
		if codeVerifier == "" {
			return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "code_verifier is required")
		}
		if !verifyCodeChallenge(attempt.CodeChallenge, codeVerifier, attempt.CodeChallengeMethod) {
			return nil, oauth2model.NewError(oauth2model.KindAccessDenied, "")
		}
	}

	if attempt.UserID == "" {
		return nil, oauth2model.NewError(oauth2model.KindServerError, "")
	}
	if s.nowFunc().Sub(attempt.AuthorizationCodeCreatedAt) > authorizationCodeTTL {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "authorization code expired")
	}

	pair, err := s.tokens.GenerateAccessAndRefreshTokens(ctx, clientID, attempt.UserID, attempt.Scope)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.HandleAuthorizationCodeGrant] GenerateAccessAndRefreshTokens")
	}

	return &oauth2model.TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  pair.AccessToken,
		ExpiresIn:    pair.ExpiresIn,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// HandleRefreshTokenGrant mints a fresh access token on an existing session.
// The response carries no refresh token; the presented one stays live with a
// slid expiry.
func (s *Service) HandleRefreshTokenGrant(ctx context.Context, clientID, refreshToken string) (*oauth2model.TokenResponse, error) {
	pair, err := s.tokens.RefreshAccessToken(ctx, clientID, refreshToken)
	if err != nil {
		return nil, s.collapse("HandleRefreshTokenGrant", err, oauth2model.KindServerError)
	}

	return &oauth2model.TokenResponse{
		TokenType:   "Bearer",
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
	}, nil
}

// RevokeTokens invalidates a refresh token and, through the live session
// check, every outstanding access token on the same session.
func (s *Service) RevokeTokens(ctx context.Context, clientID, refreshToken string) error {
	return s.tokens.RevokeTokens(ctx, clientID, refreshToken)
}

// VerifyAccessToken is the capability check used by sibling services.
func (s *Service) VerifyAccessToken(ctx context.Context, accessToken string) (*token.AccessTokenPayload, error) {
	return s.tokens.VerifyAccessToken(ctx, accessToken)
}

// PublicJWKS exposes the public half of the signing-key set.
func (s *Service) PublicJWKS(ctx context.Context) (*keys.JWKS, error) {
	return s.tokens.PublicJWKS(ctx)
}
