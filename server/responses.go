package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/derekslarson/auth-service/oauth2model"
)

// errorResponse is the OAuth2 JSON error shape.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusForKind(kind oauth2model.ErrorKind) int {
	switch kind {
	case oauth2model.KindInvalidRequest:
		return http.StatusBadRequest
	case oauth2model.KindInvalidToken:
		return http.StatusUnauthorized
	case oauth2model.KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeOAuthError reports err as a structured JSON error. Anything that is
// not already a typed OAuth2 error is treated as a server_error; services
// collapse before returning, so that branch only catches handler-level slips.
func writeOAuthError(w http.ResponseWriter, err error) {
	oauthErr := oauth2model.Collapse(err, oauth2model.KindServerError)
	writeJSON(w, statusForKind(oauthErr.Kind), errorResponse{
		Error:            string(oauthErr.Kind),
		ErrorDescription: oauthErr.Description,
	})
}

// redirectError sends the error back on the client's redirect URI query
// string when one is known, falling back to a JSON response otherwise.
func redirectError(w http.ResponseWriter, r *http.Request, redirectURI, state string, err error) {
	target, ok := errorRedirectLocation(redirectURI, state, err)
	if !ok {
		writeOAuthError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func errorRedirectLocation(redirectURI, state string, err error) (string, bool) {
	if redirectURI == "" {
		return "", false
	}
	u, parseErr := url.Parse(redirectURI)
	if parseErr != nil || !u.IsAbs() {
		return "", false
	}

	oauthErr := oauth2model.Collapse(err, oauth2model.KindServerError)
	q := u.Query()
	q.Set("error", string(oauthErr.Kind))
	if oauthErr.Description != "" {
		q.Set("error_description", oauthErr.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

func decodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return oauth2model.NewError(oauth2model.KindInvalidRequest, "malformed JSON body")
	}
	return nil
}
