package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/derekslarson/auth-service/jwks"
	"github.com/derekslarson/auth-service/oauth2model"
	"github.com/derekslarson/auth-service/sessions"
	"github.com/derekslarson/auth-service/token/keys"
)

const (
	defaultAccessTokenExpiry  = 20 * time.Minute
	defaultRefreshTokenExpiry = 180 * 24 * time.Hour
	defaultKeystoreSize       = 2
	maxRotateAttempts         = 3
)

// AccessTokenPayload is the verified claim set of an access token.
type AccessTokenPayload struct {
	ClientID  string    `json:"cid"`
	SessionID string    `json:"sid"`
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Scope     string    `json:"scope"`
	NotBefore time.Time `json:"nbf"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	TokenID   string    `json:"jti"`
}

// Pair is a freshly issued credential set. RefreshToken is empty on refresh
// grants, where the existing token lineage continues.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Service issues, refreshes, verifies and revokes access/refresh token pairs,
// and owns rotation of the signing-key set. It is the only component that
// touches signing keys and sessions.
type Service struct {
	sessions           sessions.Repo
	keystore           jwks.Repo
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	keystoreSize       int
	nowFunc            func() time.Time
}

type ServiceOption func(*Service)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// WithExpiry overrides the access and refresh token lifetimes.
func WithExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTokenExpiry = accessTokenExpiry
		s.refreshTokenExpiry = refreshTokenExpiry
	}
}

// NewService initializes a new token Service with required dependencies.
func NewService(sessionRepo sessions.Repo, keystoreRepo jwks.Repo, issuer string, options ...ServiceOption) (*Service, error) {
	if sessionRepo == nil {
		return nil, errors.New("[NewService] session repo is required")
	}
	if keystoreRepo == nil {
		return nil, errors.New("[NewService] keystore repo is required")
	}
	if issuer == "" {
		return nil, errors.New("[NewService] issuer is required")
	}

	s := &Service{
		sessions:           sessionRepo,
		keystore:           keystoreRepo,
		issuer:             issuer,
		accessTokenExpiry:  defaultAccessTokenExpiry,
		refreshTokenExpiry: defaultRefreshTokenExpiry,
		keystoreSize:       defaultKeystoreSize,
		nowFunc:            time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// GenerateAccessAndRefreshTokens allocates a new session and mints an access
// token bound to it. Session persistence and token signing touch disjoint
// state, so they run concurrently.
func (s *Service) GenerateAccessAndRefreshTokens(ctx context.Context, clientID, userID, scope string) (*Pair, error) {
	now := s.nowFunc()
	sessionID := uuid.NewString()
	refreshToken := newRefreshToken()

	var accessToken string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sessions.Create(gctx, &sessions.Session{
			ClientID:              clientID,
			SessionID:             sessionID,
			RefreshToken:          refreshToken,
			UserID:                userID,
			Scope:                 scope,
			CreatedAt:             now,
			RefreshTokenCreatedAt: now,
			RefreshTokenExpiresAt: now.Add(s.refreshTokenExpiry),
		})
	})
	g.Go(func() error {
		var err error
		accessToken, err = s.generateAccessToken(gctx, clientID, sessionID, userID, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "[Service.GenerateAccessAndRefreshTokens]")
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTokenExpiry.Seconds()),
	}, nil
}

// RefreshAccessToken mints a fresh access token bound to the same session and
// slides the refresh token expiry forward, giving the session its rolling
// window. An expired refresh token deletes the session outright.
func (s *Service) RefreshAccessToken(ctx context.Context, clientID, refreshToken string) (*Pair, error) {
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "unknown refresh token")
	}
	if session.ClientID != clientID {
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "refresh token does not belong to client")
	}

	now := s.nowFunc()
	if now.After(session.RefreshTokenExpiresAt) {
		_ = s.sessions.Delete(ctx, session.ClientID, session.SessionID)
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "refresh token expired")
	}

	accessToken, err := s.generateAccessToken(ctx, session.ClientID, session.SessionID, session.UserID, session.Scope)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RefreshAccessToken] generateAccessToken")
	}

	if err := s.sessions.UpdateRefreshTokenExpiry(ctx, session.ClientID, session.SessionID, now.Add(s.refreshTokenExpiry)); err != nil {
		return nil, errors.Wrap(err, "[Service.RefreshAccessToken] UpdateRefreshTokenExpiry")
	}

	return &Pair{
		AccessToken: accessToken,
		ExpiresIn:   int(s.accessTokenExpiry.Seconds()),
	}, nil
}

// VerifyAccessToken checks the token signature against the current keystore
// and then performs a live session existence check. A cryptographically valid,
// unexpired token whose session is gone fails verification: that is the
// revocation mechanism.
func (s *Service) VerifyAccessToken(ctx context.Context, accessToken string) (*AccessTokenPayload, error) {
	keystore, err := s.keystore.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.VerifyAccessToken] keystore.Get")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{keys.RS256}),
		jwt.WithTimeFunc(s.nowFunc),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.Parse(accessToken, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		stored := keystore.Find(kid)
		if stored == nil {
			return nil, errors.New("no keystore entry for kid")
		}
		return jwt.ParseRSAPublicKeyFromPEM([]byte(stored.PublicKeyPEM))
	})
	if err != nil || !parsed.Valid {
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "token verification failed")
	}

	payload, err := payloadFromClaims(parsed.Claims)
	if err != nil {
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "malformed token claims")
	}

	if _, err := s.sessions.Get(ctx, payload.ClientID, payload.SessionID); err != nil {
		return nil, oauth2model.NewError(oauth2model.KindInvalidToken, "session revoked")
	}

	return payload, nil
}

// RevokeTokens deletes the session holding the refresh token. The live check
// in VerifyAccessToken makes this take effect immediately for outstanding
// access tokens as well.
func (s *Service) RevokeTokens(ctx context.Context, clientID, refreshToken string) error {
	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return oauth2model.NewError(oauth2model.KindInvalidToken, "unknown refresh token")
	}
	if session.ClientID != clientID {
		return oauth2model.NewError(oauth2model.KindInvalidToken, "refresh token does not belong to client")
	}
	if err := s.sessions.Delete(ctx, session.ClientID, session.SessionID); err != nil {
		return errors.Wrap(err, "[Service.RevokeTokens] sessions.Delete")
	}
	return nil
}

func (s *Service) generateAccessToken(ctx context.Context, clientID, sessionID, userID, scope string) (string, error) {
	keystore, err := s.keystore.Get(ctx)
	if err != nil {
		return "", errors.Wrap(err, "generateAccessToken keystore.Get")
	}

	newest := keystore.Newest()
	if newest == nil {
		return "", errors.New("generateAccessToken keystore holds no keys")
	}
	keyPair, err := keys.LoadKeyPairFromPEM(newest.KeyID, newest.PrivateKeyPEM)
	if err != nil {
		return "", errors.Wrap(err, "generateAccessToken LoadKeyPairFromPEM")
	}

	now := s.nowFunc()
	claims := jwt.MapClaims{
		"cid":   clientID,
		"sid":   sessionID,
		"iss":   s.issuer,
		"sub":   userID,
		"scope": scope,
		"nbf":   now.Unix(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTokenExpiry).Unix(),
		"jti":   uuid.NewString(),
	}

	t := jwt.NewWithClaims(keyPair.GetSigningMethod(), claims)
	t.Header["kid"] = keyPair.KeyID

	signed, err := t.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "generateAccessToken SignedString")
	}
	return signed, nil
}

func payloadFromClaims(rawClaims jwt.Claims) (*AccessTokenPayload, error) {
	claims, ok := rawClaims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims from token")
	}

	cid, _ := claims["cid"].(string)
	sid, _ := claims["sid"].(string)
	iss, _ := claims["iss"].(string)
	sub, _ := claims["sub"].(string)
	scope, _ := claims["scope"].(string)
	nbf, _ := claims["nbf"].(float64)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	jti, _ := claims["jti"].(string)

	if cid == "" || sid == "" {
		return nil, errors.New("token missing session binding claims")
	}

	return &AccessTokenPayload{
		ClientID:  cid,
		SessionID: sid,
		Issuer:    iss,
		Subject:   sub,
		Scope:     scope,
		NotBefore: time.Unix(int64(nbf), 0),
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
		TokenID:   jti,
	}, nil
}

// newRefreshToken concatenates three random identifiers into one opaque
// credential.
func newRefreshToken() string {
	return uuid.NewString() + uuid.NewString() + uuid.NewString()
}
