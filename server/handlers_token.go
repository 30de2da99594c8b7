package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/derekslarson/auth-service/clients"
	"github.com/derekslarson/auth-service/internal/metrics"
	"github.com/derekslarson/auth-service/oauth2model"
)

// Token is the OAuth2 token endpoint, supporting the authorization_code and
// refresh_token grants. Grant failures go back on the redirect_uri query
// string when one was supplied, JSON otherwise.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseTokenRequest(r)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		if err := s.authenticateClient(r, req); err != nil {
			redirectError(w, r, req.RedirectURI, "", err)
			return
		}

		var response *oauth2model.TokenResponse
		switch req.GrantType {
		case oauth2model.GrantTypeAuthorizationCode:
			response, err = s.auth.HandleAuthorizationCodeGrant(r.Context(), req.ClientID, req.Code, req.RedirectURI, req.CodeVerifier)
		case oauth2model.GrantTypeRefreshToken:
			response, err = s.auth.HandleRefreshTokenGrant(r.Context(), req.ClientID, req.RefreshToken)
		default:
			err = oauth2model.NewError(oauth2model.KindInvalidRequest, "unsupported grant_type")
		}
		if err != nil {
			redirectError(w, r, req.RedirectURI, "", err)
			return
		}

		metrics.TokenIssued(string(req.GrantType))
		writeJSON(w, http.StatusOK, response)
	}
}

// Revoke invalidates a refresh token and every access token on its session.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeOAuthError(w, oauth2model.NewError(oauth2model.KindInvalidRequest, "malformed form body"))
			return
		}

		clientID := r.PostFormValue("client_id")
		refreshToken := r.PostFormValue("token")
		if clientID == "" || refreshToken == "" {
			writeOAuthError(w, oauth2model.NewError(oauth2model.KindInvalidRequest, "client_id and token are required"))
			return
		}

		if err := s.auth.RevokeTokens(r.Context(), clientID, refreshToken); err != nil {
			// Per RFC 7009 an unknown token revokes successfully.
			s.logger.Debug().Err(err).Msg("revoke on unknown token")
		}

		w.WriteHeader(http.StatusOK)
	}
}

// JWKS publishes the public halves of the signing-key set.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.auth.PublicJWKS(r.Context())
		if err != nil {
			writeOAuthError(w, oauth2model.NewError(oauth2model.KindServerError, ""))
			return
		}
		writeJSON(w, http.StatusOK, jwks)
	}
}

// Verify is the capability check used by sibling services: it validates an
// access token and returns its payload.
func (s *Server) Verify() http.HandlerFunc {
	type request struct {
		AccessToken string `json:"accessToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSONBody(r, &req); err != nil {
			writeOAuthError(w, err)
			return
		}
		if req.AccessToken == "" {
			writeOAuthError(w, oauth2model.NewError(oauth2model.KindInvalidRequest, "accessToken is required"))
			return
		}

		payload, err := s.auth.VerifyAccessToken(r.Context(), req.AccessToken)
		if err != nil {
			writeOAuthError(w, oauth2model.Collapse(err, oauth2model.KindInvalidToken))
			return
		}

		writeJSON(w, http.StatusOK, payload)
	}
}

func parseTokenRequest(r *http.Request) (*oauth2model.TokenRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "malformed form body")
	}

	req := &oauth2model.TokenRequest{
		GrantType:    oauth2model.GrantType(r.PostFormValue("grant_type")),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RefreshToken: r.PostFormValue("refresh_token"),
	}

	// HTTP Basic client credentials take precedence over form fields.
	if id, secret, ok := r.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}

	if req.ClientID == "" {
		return nil, oauth2model.NewError(oauth2model.KindInvalidRequest, "client_id is required")
	}
	return req, nil
}

// authenticateClient checks the client secret when one is presented. Public
// clients authenticate with PKCE instead and send no secret.
func (s *Server) authenticateClient(r *http.Request, req *oauth2model.TokenRequest) error {
	client, err := s.clients.Get(r.Context(), req.ClientID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return oauth2model.NewError(oauth2model.KindInvalidRequest, "unknown client")
		}
		s.logger.Error().Err(err).Msg("client lookup failed")
		return oauth2model.NewError(oauth2model.KindServerError, "")
	}

	if req.ClientSecret != "" && !client.VerifySecret(req.ClientSecret) {
		return oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}
	return nil
}
