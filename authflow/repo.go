package authflow

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("auth flow attempt not found")
	ErrAlreadyExists = errors.New("auth flow attempt already exists")
)

// Repo defines the persistence contract for auth flow attempts.
//
// ClaimByAuthorizationCode atomically fetches and deletes the attempt holding
// the given authorization code. A code can therefore be redeemed at most
// once: a second concurrent claim observes ErrNotFound.
type Repo interface {
	Create(ctx context.Context, attempt *Attempt) error // fails ErrAlreadyExists
	Get(ctx context.Context, xsrfToken string) (*Attempt, error)
	Update(ctx context.Context, attempt *Attempt) error
	Delete(ctx context.Context, xsrfToken string) error
	ClaimByAuthorizationCode(ctx context.Context, code string) (*Attempt, error)
}
