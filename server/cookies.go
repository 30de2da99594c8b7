package server

import (
	"net/http"
	"time"

	"github.com/derekslarson/auth-service/oauth2model"
)

const xsrfCookieName = "XSRF-TOKEN"

// xsrfCookieTTL bounds how long the browser may sit on the login screen
// before the anti-forgery token expires.
const xsrfCookieTTL = 2 * time.Minute

func setXSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     xsrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(xsrfCookieTTL),
	})
}

// clearXSRFCookie deletes the cookie with an epoch-zero expiry.
func clearXSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     xsrfCookieName,
		Value:    "",
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})
}

func xsrfTokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(xsrfCookieName)
	if err != nil || cookie.Value == "" {
		return "", oauth2model.NewError(oauth2model.KindAccessDenied, "")
	}
	return cookie.Value, nil
}
