package sessions

import (
	"context"
	"sync"
	"time"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a map-backed Repo used in development mode and tests.
type InMemoryRepo struct {
	sessions map[string]*Session
	byToken  map[string]string // refresh token -> composite key
	lock     sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
		byToken:  make(map[string]string),
	}
}

func compositeKey(clientID, sessionID string) string {
	return clientID + ":" + sessionID
}

func (r *InMemoryRepo) Create(_ context.Context, session *Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := compositeKey(session.ClientID, session.SessionID)
	if _, ok := r.sessions[key]; ok {
		return ErrAlreadyExists
	}
	s := *session
	r.sessions[key] = &s
	r.byToken[session.RefreshToken] = key
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, clientID, sessionID string) (*Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.sessions[compositeKey(clientID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	s := *session
	return &s, nil
}

func (r *InMemoryRepo) GetByRefreshToken(_ context.Context, refreshToken string) (*Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	key, ok := r.byToken[refreshToken]
	if !ok {
		return nil, ErrNotFound
	}
	s := *r.sessions[key]
	return &s, nil
}

func (r *InMemoryRepo) UpdateRefreshTokenExpiry(_ context.Context, clientID, sessionID string, expiresAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session, ok := r.sessions[compositeKey(clientID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	session.RefreshTokenExpiresAt = expiresAt
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, clientID, sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := compositeKey(clientID, sessionID)
	session, ok := r.sessions[key]
	if !ok {
		return ErrNotFound
	}
	delete(r.byToken, session.RefreshToken)
	delete(r.sessions, key)
	return nil
}
