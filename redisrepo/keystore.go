package redisrepo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/derekslarson/auth-service/jwks"
)

const keystoreKey = "jwks:keystore"

var _ jwks.Repo = (*KeystoreRepo)(nil)

// KeystoreRepo holds the single signing-key row. Put runs under WATCH so the
// version check and the write are one atomic step across replicas.
type KeystoreRepo struct {
	client *redis.Client
}

func NewKeystoreRepo(client *redis.Client) *KeystoreRepo {
	return &KeystoreRepo{client: client}
}

func (r *KeystoreRepo) Get(ctx context.Context) (*jwks.Keystore, error) {
	raw, err := r.client.Get(ctx, keystoreKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, jwks.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[KeystoreRepo.Get]")
	}

	var keystore jwks.Keystore
	if err := unmarshal(raw, &keystore); err != nil {
		return nil, err
	}
	return &keystore, nil
}

func (r *KeystoreRepo) Put(ctx context.Context, keystore *jwks.Keystore) error {
	payload, err := marshal(keystore)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		var currentVersion int64
		raw, err := tx.Get(ctx, keystoreKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			currentVersion = 0
		case err != nil:
			return errors.Wrap(err, "[KeystoreRepo.Put] read current")
		default:
			var current jwks.Keystore
			if err := unmarshal(raw, &current); err != nil {
				return err
			}
			currentVersion = current.Version
		}

		if keystore.Version != currentVersion+1 {
			return jwks.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keystoreKey, payload, 0)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, keystoreKey)
	if errors.Is(err, redis.TxFailedErr) {
		return jwks.ErrVersionConflict
	}
	return errors.Wrap(err, "[KeystoreRepo.Put]")
}
