package authflow

import (
	"time"

	"github.com/derekslarson/auth-service/oauth2model"
)

// Attempt is the transient record tracking one in-flight authorization flow,
// keyed by the opaque anti-forgery token handed to the browser. At most one
// of the confirmation code and the authorization code is active at a time;
// setting one clears the other.
type Attempt struct {
	XSRFToken string `json:"xsrfToken"`
	Secret    string `json:"secret"` // CSRF-signing secret

	ClientID            string                          `json:"clientId"`
	ResponseType        oauth2model.ResponseType        `json:"responseType"`
	RedirectURI         string                          `json:"redirectUri"`
	Scope               string                          `json:"scope"`
	State               string                          `json:"state,omitempty"`
	CodeChallenge       string                          `json:"codeChallenge,omitempty"`
	CodeChallengeMethod oauth2model.CodeChallengeMethod `json:"codeChallengeMethod,omitempty"`

	UserID string `json:"userId,omitempty"`

	ConfirmationCode          string    `json:"confirmationCode,omitempty"`
	ConfirmationCodeCreatedAt time.Time `json:"confirmationCodeCreatedAt,omitzero"`

	AuthorizationCode          string    `json:"authorizationCode,omitempty"`
	AuthorizationCodeCreatedAt time.Time `json:"authorizationCodeCreatedAt,omitzero"`

	ExternalProvider      string `json:"externalProvider,omitempty"`
	ExternalProviderState string `json:"externalProviderState,omitempty"`
}

// SetConfirmationCode stores a freshly issued confirmation code and clears
// any outstanding authorization code.
func (a *Attempt) SetConfirmationCode(code string, now time.Time) {
	a.ConfirmationCode = code
	a.ConfirmationCodeCreatedAt = now
	a.AuthorizationCode = ""
	a.AuthorizationCodeCreatedAt = time.Time{}
}

// SetAuthorizationCode stores a freshly minted authorization code and clears
// any outstanding confirmation code.
func (a *Attempt) SetAuthorizationCode(code string, now time.Time) {
	a.AuthorizationCode = code
	a.AuthorizationCodeCreatedAt = now
	a.ConfirmationCode = ""
	a.ConfirmationCodeCreatedAt = time.Time{}
}
