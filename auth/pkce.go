package auth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/derekslarson/auth-service/oauth2model"
)

// verifyCodeChallenge validates a PKCE code verifier against the challenge
// registered when the flow began.
func verifyCodeChallenge(storedChallenge, verifier string, method oauth2model.CodeChallengeMethod) bool {
	switch method {
	case oauth2model.CodeChallengeMethodS256:
		hash := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(hash[:]) == storedChallenge
	case oauth2model.CodeChallengeMethodPlain:
		return storedChallenge == verifier
	}
	return false
}
