package sessions

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// Repo defines the persistence contract for sessions, keyed by
// (clientID, sessionID) with a secondary lookup by refresh token value.
type Repo interface {
	Create(ctx context.Context, session *Session) error // fails ErrAlreadyExists
	Get(ctx context.Context, clientID, sessionID string) (*Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	UpdateRefreshTokenExpiry(ctx context.Context, clientID, sessionID string, expiresAt time.Time) error
	Delete(ctx context.Context, clientID, sessionID string) error
}
