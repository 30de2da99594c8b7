package token

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/derekslarson/auth-service/jwks"
	"github.com/derekslarson/auth-service/token/keys"
)

// RotateKeys advances the signing-key set. The first ever rotation generates
// a full keystore; every later one drops the oldest key and appends a fresh
// one, keeping the key count fixed so tokens signed just before a rotation
// stay verifiable until their key falls off the end.
//
// Rotation can run from any replica, so the write is a versioned
// compare-and-swap retried on conflict.
func (s *Service) RotateKeys(ctx context.Context) error {
	for attempt := 0; attempt < maxRotateAttempts; attempt++ {
		keystore, err := s.keystore.Get(ctx)
		switch {
		case errors.Is(err, jwks.ErrNotFound):
			keystore = &jwks.Keystore{}
			for i := 0; i < s.keystoreSize; i++ {
				stored, err := s.generateStoredKey()
				if err != nil {
					return err
				}
				keystore.Keys = append(keystore.Keys, *stored)
			}
		case err != nil:
			return errors.Wrap(err, "[Service.RotateKeys] keystore.Get")
		default:
			stored, err := s.generateStoredKey()
			if err != nil {
				return err
			}
			keystore.Keys = append(keystore.Keys[1:], *stored)
		}

		keystore.Version++
		keystore.UpdatedAt = s.nowFunc()

		err = s.keystore.Put(ctx, keystore)
		if errors.Is(err, jwks.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "[Service.RotateKeys] keystore.Put")
		}
		return nil
	}
	return errors.New("[Service.RotateKeys] gave up after repeated version conflicts")
}

// PublicJWKS returns the published key set: public halves only, oldest first.
func (s *Service) PublicJWKS(ctx context.Context) (*keys.JWKS, error) {
	keystore, err := s.keystore.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.PublicJWKS] keystore.Get")
	}

	set := &keys.JWKS{Keys: make([]keys.JWK, 0, len(keystore.Keys))}
	for _, stored := range keystore.Keys {
		keyPair, err := keys.LoadKeyPairFromPEM(stored.KeyID, stored.PrivateKeyPEM)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.PublicJWKS] LoadKeyPairFromPEM")
		}
		jwk, err := keyPair.ToJWK()
		if err != nil {
			return nil, errors.Wrap(err, "[Service.PublicJWKS] ToJWK")
		}
		set.Keys = append(set.Keys, *jwk)
	}
	return set, nil
}

func (s *Service) generateStoredKey() (*jwks.StoredKey, error) {
	keyPair, err := keys.GenerateRSAKeyPair(uuid.NewString(), 2048)
	if err != nil {
		return nil, errors.Wrap(err, "generateStoredKey GenerateRSAKeyPair")
	}
	privatePEM, err := keyPair.ExportPrivateKeyPEM()
	if err != nil {
		return nil, errors.Wrap(err, "generateStoredKey ExportPrivateKeyPEM")
	}
	publicPEM, err := keyPair.ExportPublicKeyPEM()
	if err != nil {
		return nil, errors.Wrap(err, "generateStoredKey ExportPublicKeyPEM")
	}
	return &jwks.StoredKey{
		KeyID:         keyPair.KeyID,
		Algorithm:     keyPair.Algorithm,
		PrivateKeyPEM: privatePEM,
		PublicKeyPEM:  publicPEM,
		CreatedAt:     s.nowFunc(),
	}, nil
}
