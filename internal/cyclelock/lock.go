// Package cyclelock keeps two ingest cycles from running at the same time
// across processes. Without REDIS_URL it degrades to an in-process lock.
package cyclelock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "jobcatalog:cycle"

// ErrHeld is returned by Acquire when another holder owns the lock.
var ErrHeld = errors.New("cycle lock is held")

// Locker hands out a release func on success.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
	Close() error
}

// New returns a Redis-backed locker when redisURL is set, otherwise a
// process-local one.
func New(ctx context.Context, redisURL string, ttl time.Duration) (Locker, error) {
	if strings.TrimSpace(redisURL) == "" {
		return &localLocker{}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedis(client, DefaultKey, ttl), nil
}

// releaseScript deletes the key only when it still carries our token, so an
// expired-then-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

type localLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *localLocker) Acquire(context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, ErrHeld
	}
	l.held = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, nil
}

func (l *localLocker) Close() error { return nil }
