package inflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var acquireScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]
local ttl = tonumber(ARGV[2])
if redis.call('SET', key, token, 'NX', 'PX', ttl) then
  return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('GET', key) == ARGV[1] then
  return redis.call('DEL', key)
end
return 0
`)

// Client is the subset of the go-redis client the guard uses.
type Client interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis keeps the flag in a Redis key so API replicas sharing a session
// id cannot overlap operations. The TTL bounds how long a crashed holder
// can block the session.
type Redis struct {
	client Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRedis constructs a guard for one session.
func NewRedis(client Client, keyPrefix, sessionID string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client: client,
		key:    Key(keyPrefix, sessionID),
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// RedisFactory builds Redis guards sharing one client.
func RedisFactory(client Client, keyPrefix string, ttl time.Duration) Factory {
	return func(sessionID string) Guard {
		return NewRedis(client, keyPrefix, sessionID, ttl)
	}
}

// Key returns the Redis key holding a session's flag.
func Key(prefix, sessionID string) string {
	if prefix == "" {
		prefix = "ivr:session"
	}
	return fmt.Sprintf("%s:%s:inflight", prefix, sessionID)
}

// Acquire attempts to set the flag.
func (r *Redis) Acquire(ctx context.Context) (bool, error) {
	res, err := acquireScript.Run(ctx, r.client, []string{r.key}, r.token, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("inflight acquire: %w", err)
	}
	return res == 1, nil
}

// Release clears the flag if this guard still owns it.
func (r *Redis) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Int(); err != nil {
		return fmt.Errorf("inflight release: %w", err)
	}
	return nil
}

// Held reports whether any holder currently owns the key.
func (r *Redis) Held(ctx context.Context) (bool, error) {
	err := r.client.Get(ctx, r.key).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("inflight held: %w", err)
	}
}
