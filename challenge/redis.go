package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTokenSuffix  = "token"
	redisExpirySuffix = "expires_at"

	// defaultMirrorTTL caps how long a challenge with no server-provided
	// expiry survives in the mirror.
	defaultMirrorTTL = 10 * time.Minute
)

// RedisStore mirrors the pending challenge into Redis for hosts where the
// flow may resume in another process (a CLI re-invocation, a restarted
// daemon). The record is TTL'd to the challenge expiry so Redis drops it
// on its own even if Clear is never called.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	now func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithMirrorTTL sets the fallback TTL used when a challenge carries no
// expiry. Non-positive values keep the default.
func WithMirrorTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore returns a store writing under "<prefix>:token" and
// "<prefix>:expires_at".
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "skc"
	}
	s := &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    defaultMirrorTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(suffix string) string {
	return s.prefix + ":" + suffix
}

// Save replaces the mirrored challenge. The TTL follows the challenge
// expiry when one is known.
func (s *RedisStore) Save(ctx context.Context, c Challenge) error {
	ttl := s.ttl
	expiry := ""
	if !c.ExpiresAt.IsZero() {
		expiry = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
		if remaining := time.Until(c.ExpiresAt); remaining > 0 {
			ttl = remaining
		}
	}

	if err := s.client.Set(ctx, s.key(redisTokenSuffix), c.TempToken, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.client.Set(ctx, s.key(redisExpirySuffix), expiry, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load returns the mirrored challenge, dropping expired records on read.
func (s *RedisStore) Load(ctx context.Context) (Challenge, bool, error) {
	token, err := s.client.Get(ctx, s.key(redisTokenSuffix)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Challenge{}, false, nil
		}
		return Challenge{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if token == "" {
		return Challenge{}, false, nil
	}

	c := Challenge{TempToken: token}
	expiry, err := s.client.Get(ctx, s.key(redisExpirySuffix)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Challenge{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if expiry != "" {
		if at, perr := time.Parse(time.RFC3339Nano, expiry); perr == nil {
			c.ExpiresAt = at
		}
	}

	if c.Expired(s.now()) {
		_ = s.Clear(ctx)
		return Challenge{}, false, nil
	}
	return c, true, nil
}

// Clear removes both keys. Idempotent.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(redisTokenSuffix), s.key(redisExpirySuffix)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
