package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/derekslarson/auth-service/oauth2model"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	secret, err := newFlowSecret()
	require.NoError(t, err)

	token, err := newCSRFToken(secret)
	require.NoError(t, err)
	require.True(t, verifyCSRFToken(secret, token))
}

func TestCSRFTokenDistinctPerCall(t *testing.T) {
	secret, err := newFlowSecret()
	require.NoError(t, err)

	first, err := newCSRFToken(secret)
	require.NoError(t, err)
	second, err := newCSRFToken(secret)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, verifyCSRFToken(secret, first))
	require.True(t, verifyCSRFToken(secret, second))
}

func TestCSRFTokenFailsClosed(t *testing.T) {
	secret, err := newFlowSecret()
	require.NoError(t, err)
	token, err := newCSRFToken(secret)
	require.NoError(t, err)

	require.False(t, verifyCSRFToken("wrong-secret", token))
	require.False(t, verifyCSRFToken(secret, token+"x"))
	require.False(t, verifyCSRFToken(secret, "not!base64url"))
	require.False(t, verifyCSRFToken(secret, ""))
}

func TestConfirmationCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := newConfirmationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestEqualCodes(t *testing.T) {
	require.True(t, equalCodes("123456", "123456"))
	require.False(t, equalCodes("123456", "123457"))
	require.False(t, equalCodes("123456", ""))
}

func TestVerifyCodeChallenge(t *testing.T) {
	// S256 test vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	require.True(t, verifyCodeChallenge(challenge, verifier, oauth2model.CodeChallengeMethodS256))
	require.False(t, verifyCodeChallenge(challenge, "wrong", oauth2model.CodeChallengeMethodS256))

	require.True(t, verifyCodeChallenge(verifier, verifier, oauth2model.CodeChallengeMethodPlain))
	require.False(t, verifyCodeChallenge(challenge, verifier, oauth2model.CodeChallengeMethodPlain))

	require.False(t, verifyCodeChallenge(challenge, verifier, "S512"))
}
