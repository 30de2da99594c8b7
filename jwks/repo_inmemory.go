package jwks

import (
	"context"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a single-row Repo used in development mode and tests.
type InMemoryRepo struct {
	keystore *Keystore
	lock     sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) Get(_ context.Context) (*Keystore, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.keystore == nil {
		return nil, ErrNotFound
	}
	k := *r.keystore
	k.Keys = append([]StoredKey(nil), r.keystore.Keys...)
	return &k, nil
}

func (r *InMemoryRepo) Put(_ context.Context, keystore *Keystore) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	var current int64
	if r.keystore != nil {
		current = r.keystore.Version
	}
	if keystore.Version != current+1 {
		return ErrVersionConflict
	}
	k := *keystore
	k.Keys = append([]StoredKey(nil), keystore.Keys...)
	r.keystore = &k
	return nil
}
