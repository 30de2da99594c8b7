// Package redisrepo implements the repository contracts on Redis. Conditional
// writes (SetNX, scripted claim, watched compare-and-swap) stand in for the
// locking the stateless services never take.
package redisrepo

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "redisrepo marshal")
	}
	return string(raw), nil
}

func unmarshal(raw string, v any) error {
	return errors.Wrap(json.Unmarshal([]byte(raw), v), "redisrepo unmarshal")
}
