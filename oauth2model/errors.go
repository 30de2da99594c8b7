package oauth2model

import (
	"errors"
	"fmt"
)

// ErrorKind is the OAuth2 error code reported to callers. Every failure that
// crosses a service boundary is one of these four; anything else is an
// internal error that must be collapsed before it reaches a redirect URL or
// token response.
type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid_request"
	KindInvalidToken   ErrorKind = "invalid_token"
	KindAccessDenied   ErrorKind = "access_denied"
	KindServerError    ErrorKind = "server_error"
)

// Error is the typed OAuth2 error passed through service boundaries
// unchanged. The Kind discriminator is matched with errors.As rather than
// comparing concrete types.
type Error struct {
	Kind        ErrorKind
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// NewError creates a typed OAuth2 error.
func NewError(kind ErrorKind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// AsError unwraps err to a typed OAuth2 error if one is anywhere in the chain.
func AsError(err error) (*Error, bool) {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr, true
	}
	return nil, false
}

// Collapse passes typed OAuth2 errors through unchanged and folds everything
// else into fallback, so internal failure detail never leaks to callers.
func Collapse(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}
	if oauthErr, ok := AsError(err); ok {
		return oauthErr
	}
	return &Error{Kind: fallback}
}
