package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a map-backed Repo used in development mode and tests.
type InMemoryRepo struct {
	users   map[string]*User
	byEmail map[string]string
	byPhone map[string]string
	lock    sync.RWMutex
	nowFunc func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
		nowFunc: time.Now,
	}
}

func (r *InMemoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

func (r *InMemoryRepo) ResolveByEmail(_ context.Context, email string) (*User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if id, ok := r.byEmail[email]; ok {
		u := *r.users[id]
		return &u, nil
	}
	user := &User{ID: uuid.NewString(), Email: email, CreatedAt: r.nowFunc()}
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	u := *user
	return &u, nil
}

func (r *InMemoryRepo) ResolveByPhone(_ context.Context, phone string) (*User, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if id, ok := r.byPhone[phone]; ok {
		u := *r.users[id]
		return &u, nil
	}
	user := &User{ID: uuid.NewString(), Phone: phone, CreatedAt: r.nowFunc()}
	r.users[user.ID] = user
	r.byPhone[phone] = user.ID
	u := *user
	return &u, nil
}
