package jwks

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("keystore not found")
	ErrVersionConflict = errors.New("keystore version conflict")
)

// Repo is the single-row store holding the serialized signing-key set.
// Put is conditional: it succeeds only when the incoming Version is exactly
// one ahead of the persisted Version (or 1 when no row exists yet), failing
// ErrVersionConflict otherwise. Callers retry by re-reading.
type Repo interface {
	Get(ctx context.Context) (*Keystore, error)
	Put(ctx context.Context, keystore *Keystore) error
}
