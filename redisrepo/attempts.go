package redisrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/derekslarson/auth-service/authflow"
)

const (
	attemptKeyPrefix     = "authflow:attempt:"
	attemptCodeKeyPrefix = "authflow:code:"
)

// claimScript atomically resolves an authorization code to its attempt and
// deletes both the index and the attempt, so only one caller ever sees it.
var claimScript = redis.NewScript(`
local xsrf = redis.call("GET", KEYS[1])
if not xsrf then
	return false
end
redis.call("DEL", KEYS[1])
local key = ARGV[1] .. xsrf
local attempt = redis.call("GET", key)
redis.call("DEL", key)
return attempt
`)

var _ authflow.Repo = (*AttemptRepo)(nil)

// AttemptRepo stores auth flow attempts with a TTL, so abandoned flows age
// out without a sweep job.
type AttemptRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptRepo(client *redis.Client, ttl time.Duration) *AttemptRepo {
	return &AttemptRepo{client: client, ttl: ttl}
}

func attemptKey(xsrfToken string) string {
	return attemptKeyPrefix + xsrfToken
}

func attemptCodeKey(code string) string {
	return attemptCodeKeyPrefix + code
}

func (r *AttemptRepo) Create(ctx context.Context, attempt *authflow.Attempt) error {
	payload, err := marshal(attempt)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, attemptKey(attempt.XSRFToken), payload, r.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "[AttemptRepo.Create] SetNX")
	}
	if !ok {
		return authflow.ErrAlreadyExists
	}
	return nil
}

func (r *AttemptRepo) Get(ctx context.Context, xsrfToken string) (*authflow.Attempt, error) {
	raw, err := r.client.Get(ctx, attemptKey(xsrfToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, authflow.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[AttemptRepo.Get]")
	}

	var attempt authflow.Attempt
	if err := unmarshal(raw, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepo) Update(ctx context.Context, attempt *authflow.Attempt) error {
	old, err := r.Get(ctx, attempt.XSRFToken)
	if err != nil {
		return err
	}

	payload, err := marshal(attempt)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, attemptKey(attempt.XSRFToken), payload, r.ttl)
	if old.AuthorizationCode != "" && old.AuthorizationCode != attempt.AuthorizationCode {
		pipe.Del(ctx, attemptCodeKey(old.AuthorizationCode))
	}
	if attempt.AuthorizationCode != "" {
		pipe.Set(ctx, attemptCodeKey(attempt.AuthorizationCode), attempt.XSRFToken, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "[AttemptRepo.Update] pipeline")
	}
	return nil
}

func (r *AttemptRepo) Delete(ctx context.Context, xsrfToken string) error {
	attempt, err := r.Get(ctx, xsrfToken)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, attemptKey(xsrfToken))
	if attempt.AuthorizationCode != "" {
		pipe.Del(ctx, attemptCodeKey(attempt.AuthorizationCode))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "[AttemptRepo.Delete] pipeline")
	}
	return nil
}

func (r *AttemptRepo) ClaimByAuthorizationCode(ctx context.Context, code string) (*authflow.Attempt, error) {
	raw, err := claimScript.Run(ctx, r.client, []string{attemptCodeKey(code)}, attemptKeyPrefix).Text()
	if errors.Is(err, redis.Nil) {
		return nil, authflow.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[AttemptRepo.ClaimByAuthorizationCode] script")
	}

	var attempt authflow.Attempt
	if err := unmarshal(raw, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}
