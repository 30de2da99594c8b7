package authflow

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps attempts in a TTL cache so abandoned flows age out
// without a sweep job, mirroring the expiry the backing store applies in
// production. Used in development mode and tests.
type InMemoryRepo struct {
	attempts *ttlcache.Cache[string, *Attempt]
	codes    map[string]string // authorization code -> xsrfToken
	ttl      time.Duration
	lock     sync.Mutex
}

func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Attempt](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Attempt](),
	)
	go cache.Start()

	return &InMemoryRepo{
		attempts: cache,
		codes:    make(map[string]string),
		ttl:      ttl,
	}
}

func (r *InMemoryRepo) Create(_ context.Context, attempt *Attempt) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.attempts.Has(attempt.XSRFToken) {
		return ErrAlreadyExists
	}
	a := *attempt
	r.attempts.Set(attempt.XSRFToken, &a, r.ttl)
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, xsrfToken string) (*Attempt, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	item := r.attempts.Get(xsrfToken)
	if item == nil {
		return nil, ErrNotFound
	}
	a := *item.Value()
	return &a, nil
}

func (r *InMemoryRepo) Update(_ context.Context, attempt *Attempt) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	item := r.attempts.Get(attempt.XSRFToken)
	if item == nil {
		return ErrNotFound
	}
	r.reindexLocked(item.Value(), attempt)
	a := *attempt
	r.attempts.Set(attempt.XSRFToken, &a, r.ttl)
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, xsrfToken string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	item := r.attempts.Get(xsrfToken)
	if item == nil {
		return ErrNotFound
	}
	if code := item.Value().AuthorizationCode; code != "" {
		delete(r.codes, code)
	}
	r.attempts.Delete(xsrfToken)
	return nil
}

func (r *InMemoryRepo) ClaimByAuthorizationCode(_ context.Context, code string) (*Attempt, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	xsrfToken, ok := r.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	item := r.attempts.Get(xsrfToken)
	delete(r.codes, code)
	if item == nil {
		return nil, ErrNotFound
	}
	a := *item.Value()
	r.attempts.Delete(xsrfToken)
	return &a, nil
}

func (r *InMemoryRepo) reindexLocked(old, updated *Attempt) {
	if old.AuthorizationCode != "" && old.AuthorizationCode != updated.AuthorizationCode {
		delete(r.codes, old.AuthorizationCode)
	}
	if updated.AuthorizationCode != "" {
		r.codes[updated.AuthorizationCode] = updated.XSRFToken
	}
}
