package redisrepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/derekslarson/auth-service/users"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user:email:"
	userPhoneKeyPrefix = "user:phone:"
)

var _ users.Repo = (*UserRepo)(nil)

// UserRepo stores users with identifier indexes mapping email/phone to the
// user ID. Resolve is get-or-create; SetNX on the index key decides the race
// when two logins for a new identifier arrive at once.
type UserRepo struct {
	client  *redis.Client
	nowFunc func() time.Time
}

func NewUserRepo(client *redis.Client) *UserRepo {
	return &UserRepo{client: client, nowFunc: time.Now}
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	raw, err := r.client.Get(ctx, userKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.GetByID]")
	}

	var user users.User
	if err := unmarshal(raw, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) ResolveByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.resolve(ctx, userEmailKeyPrefix+email, func(id string) *users.User {
		return &users.User{ID: id, Email: email, CreatedAt: r.nowFunc()}
	})
}

func (r *UserRepo) ResolveByPhone(ctx context.Context, phone string) (*users.User, error) {
	return r.resolve(ctx, userPhoneKeyPrefix+phone, func(id string) *users.User {
		return &users.User{ID: id, Phone: phone, CreatedAt: r.nowFunc()}
	})
}

func (r *UserRepo) resolve(ctx context.Context, indexKey string, build func(id string) *users.User) (*users.User, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if err == nil {
		return r.GetByID(ctx, id)
	}
	if !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "[UserRepo.resolve] index")
	}

	user := build(uuid.NewString())
	payload, err := marshal(user)
	if err != nil {
		return nil, err
	}

	ok, err := r.client.SetNX(ctx, indexKey, user.ID, 0).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.resolve] SetNX index")
	}
	if !ok {
		// Lost the creation race; the winner's record is authoritative.
		id, err := r.client.Get(ctx, indexKey).Result()
		if err != nil {
			return nil, errors.Wrap(err, "[UserRepo.resolve] reread index")
		}
		return r.GetByID(ctx, id)
	}

	if err := r.client.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		return nil, errors.Wrap(err, "[UserRepo.resolve] store user")
	}
	return user, nil
}
