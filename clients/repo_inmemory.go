package clients

import (
	"context"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a map-backed Repo used in development mode and tests.
type InMemoryRepo struct {
	clients map[string]*Client
	lock    sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{clients: make(map[string]*Client)}
}

func (r *InMemoryRepo) Create(_ context.Context, client *Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.clients[client.ID]; ok {
		return ErrAlreadyExists
	}
	c := *client
	r.clients[client.ID] = &c
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *client
	return &c, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.clients[id]; !ok {
		return ErrNotFound
	}
	delete(r.clients, id)
	return nil
}
