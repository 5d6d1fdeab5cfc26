package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
)

const (
	defaultRedisPrefix = "hotspotkeeper:lock"
	defaultLockTTL     = 5 * time.Minute
	defaultRetry       = 50 * time.Millisecond
)

// RedisLocker is a Locker shared between processes. A hold is a key set
// with SETNX whose value is "<owner>|<fencing token>"; it expires after ttl
// so a crashed holder cannot wedge a username forever. Holds are not renewed:
// ttl must outlast the longest locked workflow.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    logging.Logger
}

func NewRedisLocker(client redis.Cmdable, prefix string, ttl time.Duration) *RedisLocker {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		client: client,
		prefix: normalized,
		ttl:    ttl,
		retry:  defaultRetry,
		log:    logging.NewNopLogger(),
	}
}

// WithLogger sets the logger that reports failed releases.
func (l *RedisLocker) WithLogger(logger logging.Logger) *RedisLocker {
	if logger != nil {
		l.log = logger
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}

	owner := uuid.NewString()
	for {
		token, ok, err := l.acquire(ctx, key, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the caller's ctx may already be cancelled
					if err := l.release(context.Background(), key, owner, token); err != nil {
						l.log.Warn(ctx, "lock release failed, hold expires with its ttl",
							"key", key, "ttl", l.ttl, "error", err)
					}
				})
			}, nil
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) acquire(ctx context.Context, key, owner string) (uint64, bool, error) {
	token, err := l.client.Incr(ctx, l.seqKey(key)).Uint64()
	if err != nil {
		return 0, false, fmt.Errorf("lock incr token: %w", err)
	}

	value := fmt.Sprintf("%s|%d", owner, token)
	acquired, err := l.client.SetNX(ctx, l.holdKey(key), value, l.ttl).Result()
	if err != nil {
		return 0, false, fmt.Errorf("lock setnx: %w", err)
	}
	return token, acquired, nil
}

func (l *RedisLocker) release(ctx context.Context, key, owner string, token uint64) error {
	value := fmt.Sprintf("%s|%d", owner, token)
	_, err := releaseLockScript.Run(ctx, l.client, []string{l.holdKey(key)}, value).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lock release: %w", err)
	}
	return nil
}

func (l *RedisLocker) holdKey(key string) string {
	return l.prefix + ":hold:" + key
}

func (l *RedisLocker) seqKey(key string) string {
	return l.prefix + ":seq:" + key
}

var releaseLockScript = redis.NewScript(`
local existing = redis.call("GET", KEYS[1])
if not existing then
  return 0
end
if existing == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)
