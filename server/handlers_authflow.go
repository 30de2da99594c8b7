package server

import (
	"net/http"

	"github.com/derekslarson/auth-service/auth"
	"github.com/derekslarson/auth-service/oauth2model"
)

// Authorize begins an authorization flow: the browser is redirected to the
// login UI carrying an anti-forgery cookie. Failures redirect back to the
// caller's redirect_uri when it is usable, per OAuth2 convention.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		result, err := s.auth.BeginAuthFlow(r.Context(), auth.BeginFlowInput{
			ClientID:            q.Get("client_id"),
			ResponseType:        oauth2model.ResponseType(q.Get("response_type")),
			RedirectURI:         q.Get("redirect_uri"),
			State:               q.Get("state"),
			Scope:               q.Get("scope"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: oauth2model.CodeChallengeMethod(q.Get("code_challenge_method")),
		})
		if err != nil {
			redirectError(w, r, q.Get("redirect_uri"), q.Get("state"), err)
			return
		}

		setXSRFCookie(w, result.XSRFToken)
		http.Redirect(w, r, result.Location, http.StatusSeeOther)
	}
}

// Login accepts the user's identifier and dispatches a confirmation code.
func (s *Server) Login() http.HandlerFunc {
	type request struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		xsrfToken, err := xsrfTokenFromRequest(r)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		var req request
		if err := decodeJSONBody(r, &req); err != nil {
			writeOAuthError(w, err)
			return
		}

		if err := s.auth.Login(r.Context(), xsrfToken, auth.LoginInput{Email: req.Email, Phone: req.Phone}); err != nil {
			writeOAuthError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Confirm trades a confirmation code for a single-use authorization code and
// clears the anti-forgery cookie.
func (s *Server) Confirm() http.HandlerFunc {
	type request struct {
		ConfirmationCode string `json:"confirmationCode"`
	}
	type response struct {
		AuthorizationCode string `json:"authorizationCode"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		xsrfToken, err := xsrfTokenFromRequest(r)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		var req request
		if err := decodeJSONBody(r, &req); err != nil {
			writeOAuthError(w, err)
			return
		}

		result, err := s.auth.Confirm(r.Context(), xsrfToken, req.ConfirmationCode)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		clearXSRFCookie(w)
		writeJSON(w, http.StatusOK, response{AuthorizationCode: result.AuthorizationCode})
	}
}

// AuthorizeExternal redirects the browser to a federated identity provider.
func (s *Server) AuthorizeExternal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xsrfToken, err := xsrfTokenFromRequest(r)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		location, err := s.auth.LoginViaExternalProvider(r.Context(), xsrfToken, r.URL.Query().Get("provider"))
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

// Callback completes a federated login and redirects back to the client with
// an authorization code.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		xsrfToken, err := xsrfTokenFromRequest(r)
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			writeOAuthError(w, oauth2model.NewError(oauth2model.KindAccessDenied, ""))
			return
		}

		location, err := s.auth.CompleteExternalProviderAuthFlow(r.Context(), xsrfToken, q.Get("code"), q.Get("state"))
		if err != nil {
			writeOAuthError(w, err)
			return
		}

		clearXSRFCookie(w)
		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}
