package users

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("user not found")

// Repo defines the persistence contract for users. The Resolve methods
// get-or-create: an unknown identifier yields a freshly created user rather
// than an error, which is what lets the confirmation-code flow double as
// signup.
type Repo interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ResolveByEmail(ctx context.Context, email string) (*User, error)
	ResolveByPhone(ctx context.Context, phone string) (*User, error)
}
