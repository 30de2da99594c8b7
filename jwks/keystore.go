package jwks

import "time"

// StoredKey is one serialized signing key pair. Private material never leaves
// the keystore row; the public half is published through the JWKS endpoint.
type StoredKey struct {
	KeyID         string    `json:"keyId"`
	Algorithm     string    `json:"algorithm"`
	PrivateKeyPEM string    `json:"privateKeyPem"`
	PublicKeyPEM  string    `json:"publicKeyPem"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Keystore is the single persisted row of signing keys, oldest first. The
// Version counter makes rotation an atomic read-modify-write: a Put only
// succeeds when its Version is exactly one ahead of the stored row, so two
// replicas rotating at once cannot both win.
type Keystore struct {
	Keys      []StoredKey `json:"keys"`
	Version   int64       `json:"version"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Newest returns the most recently added key. New tokens are always signed
// with this one; older keys remain only so outstanding tokens verify.
func (k *Keystore) Newest() *StoredKey {
	if len(k.Keys) == 0 {
		return nil
	}
	return &k.Keys[len(k.Keys)-1]
}

// Find returns the stored key with the given key ID, or nil.
func (k *Keystore) Find(keyID string) *StoredKey {
	for i := range k.Keys {
		if k.Keys[i].KeyID == keyID {
			return &k.Keys[i]
		}
	}
	return nil
}
