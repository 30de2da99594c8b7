package oauth2model

// Possible OAuth2 response types, grant types and PKCE challenge methods.
type ResponseType string

const (
	ResponseTypeCode ResponseType = "code"
)

type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

type CodeChallengeMethod string

const (
	CodeChallengeMethodS256  CodeChallengeMethod = "S256"
	CodeChallengeMethodPlain CodeChallengeMethod = "plain"
)

// TokenResponse is the standard OAuth2 token endpoint response shape.
// RefreshToken is only populated on the authorization_code grant.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenRequest carries the parsed parameters of a token endpoint call.
type TokenRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
}
