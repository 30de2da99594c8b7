package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

const (
	flowSecretLength = 32
	csrfSaltLength   = 16
	codeLength       = 32
)

// newFlowSecret generates the per-attempt CSRF-signing secret.
func newFlowSecret() (string, error) {
	return randomURLToken(flowSecretLength)
}

// newCSRFToken derives an anti-forgery token from the attempt secret:
// a random salt followed by an HMAC-SHA256 of that salt under the secret,
// base64url encoded. Each call yields a distinct token for the same secret.
func newCSRFToken(secret string) (string, error) {
	salt := make([]byte, csrfSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "newCSRFToken rand.Read")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(salt)

	return base64.RawURLEncoding.EncodeToString(append(salt, mac.Sum(nil)...)), nil
}

// verifyCSRFToken checks a presented token against the attempt secret in
// constant time. Any decode failure or length mismatch fails closed.
func verifyCSRFToken(secret, token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != csrfSaltLength+sha256.Size {
		return false
	}

	salt, sum := raw[:csrfSaltLength], raw[csrfSaltLength:]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(salt)

	return hmac.Equal(sum, mac.Sum(nil))
}

// newAuthorizationCode mints the opaque single-use credential exchanged for
// tokens at the token endpoint.
func newAuthorizationCode() (string, error) {
	return randomURLToken(codeLength)
}

// newConfirmationCode generates the 6-digit code delivered over email or SMS.
func newConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, "newConfirmationCode rand.Int")
	}
	return fmt.Sprintf("%06d", n), nil
}

// equalCodes compares confirmation codes without leaking timing.
func equalCodes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomURLToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "randomURLToken rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
