package clients

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Client is an OAuth2 client registered out-of-band. Immutable once issued
// except by explicit admin deletion.
type Client struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SecretHash  string    `json:"-"` // bcrypt hash - never serialize
	RedirectURI string    `json:"redirectUri"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateScopes checks if all requested scopes are allowed for this client
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range strings.Fields(requestedScopes) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}

// VerifySecret compares a presented client secret against the stored hash.
func (c *Client) VerifySecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// HashSecret hashes a client secret for storage.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}
