package redisrepo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/derekslarson/auth-service/clients"
)

const clientKeyPrefix = "client:"

var _ clients.Repo = (*ClientRepo)(nil)

// ClientRepo stores registered OAuth2 clients. Registrations are durable, so
// no TTL is set.
type ClientRepo struct {
	client *redis.Client
}

func NewClientRepo(client *redis.Client) *ClientRepo {
	return &ClientRepo{client: client}
}

func clientKey(id string) string {
	return clientKeyPrefix + id
}

// storedClient re-exposes the secret hash, which the domain type deliberately
// keeps out of its JSON form.
type storedClient struct {
	clients.Client
	SecretHash string `json:"secretHash"`
}

func (r *ClientRepo) Create(ctx context.Context, c *clients.Client) error {
	payload, err := marshal(storedClient{Client: *c, SecretHash: c.SecretHash})
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, clientKey(c.ID), payload, 0).Result()
	if err != nil {
		return errors.Wrap(err, "[ClientRepo.Create] SetNX")
	}
	if !ok {
		return clients.ErrAlreadyExists
	}
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, id string) (*clients.Client, error) {
	raw, err := r.client.Get(ctx, clientKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, clients.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[ClientRepo.Get]")
	}

	var stored storedClient
	if err := unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	c := stored.Client
	c.SecretHash = stored.SecretHash
	return &c, nil
}

func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, clientKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "[ClientRepo.Delete]")
	}
	if deleted == 0 {
		return clients.ErrNotFound
	}
	return nil
}
