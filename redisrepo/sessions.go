package redisrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/derekslarson/auth-service/sessions"
)

const (
	sessionKeyPrefix      = "session:"
	sessionTokenKeyPrefix = "session:token:"
)

// sessionTTLGrace keeps a revocable record around briefly past the refresh
// token's own expiry so a late refresh still gets a clean "expired" answer
// instead of "not found".
const sessionTTLGrace = 24 * time.Hour

var _ sessions.Repo = (*SessionRepo)(nil)

// SessionRepo keys sessions by (clientID, sessionID) with a secondary key
// mapping the refresh token value back to the session.
type SessionRepo struct {
	client *redis.Client
}

func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func sessionKey(clientID, sessionID string) string {
	return sessionKeyPrefix + clientID + ":" + sessionID
}

func sessionTokenKey(refreshToken string) string {
	return sessionTokenKeyPrefix + refreshToken
}

func (r *SessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	payload, err := marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.RefreshTokenExpiresAt) + sessionTTLGrace
	ok, err := r.client.SetNX(ctx, sessionKey(session.ClientID, session.SessionID), payload, ttl).Result()
	if err != nil {
		return errors.Wrap(err, "[SessionRepo.Create] SetNX")
	}
	if !ok {
		return sessions.ErrAlreadyExists
	}

	if err := r.client.Set(ctx, sessionTokenKey(session.RefreshToken), sessionKey(session.ClientID, session.SessionID), ttl).Err(); err != nil {
		return errors.Wrap(err, "[SessionRepo.Create] token index")
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, clientID, sessionID string) (*sessions.Session, error) {
	return r.getByKey(ctx, sessionKey(clientID, sessionID))
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	key, err := r.client.Get(ctx, sessionTokenKey(refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[SessionRepo.GetByRefreshToken] token index")
	}
	return r.getByKey(ctx, key)
}

func (r *SessionRepo) getByKey(ctx context.Context, key string) (*sessions.Session, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[SessionRepo.getByKey]")
	}

	var session sessions.Session
	if err := unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepo) UpdateRefreshTokenExpiry(ctx context.Context, clientID, sessionID string, expiresAt time.Time) error {
	session, err := r.Get(ctx, clientID, sessionID)
	if err != nil {
		return err
	}

	session.RefreshTokenExpiresAt = expiresAt
	payload, err := marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(expiresAt) + sessionTTLGrace
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(clientID, sessionID), payload, ttl)
	pipe.Expire(ctx, sessionTokenKey(session.RefreshToken), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "[SessionRepo.UpdateRefreshTokenExpiry] pipeline")
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, clientID, sessionID string) error {
	session, err := r.Get(ctx, clientID, sessionID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(clientID, sessionID))
	pipe.Del(ctx, sessionTokenKey(session.RefreshToken))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "[SessionRepo.Delete] pipeline")
	}
	return nil
}
