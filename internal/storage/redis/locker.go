// Package redis provides the cross-process per-character mutation lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpcombat/internal/config"
)

// KeyPrefix namespaces character lock keys.
const KeyPrefix = "rpcombat:lock:character:"

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// ErrLockLost is returned by a release when a key expired or was taken
// over before it was released.
var ErrLockLost = errors.New("lock lost before release")

// Locker serializes mutations of a character across processes with
// SET NX PX keys.
type Locker struct {
	client   goredis.Cmdable
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
	logger   *zap.Logger
}

// Option customizes a Locker.
type Option func(*Locker)

// WithTokenSource replaces the uuid token generator.
func WithTokenSource(fn func() string) Option {
	return func(l *Locker) { l.newToken = fn }
}

// NewLocker creates a Locker whose keys expire after cfg.LockTTL and whose
// acquisition retries every cfg.LockRetry.
//
// Precondition: client must be non-nil; cfg must pass config validation.
func NewLocker(client goredis.Cmdable, cfg config.RedisConfig, logger *zap.Logger, opts ...Option) *Locker {
	l := &Locker{
		client:   client,
		ttl:      cfg.LockTTL,
		retry:    cfg.LockRetry,
		newToken: uuid.NewString,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewClient connects to the configured Redis server.
//
// Postcondition: Returns a client that answered PING, or a non-nil error.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Acquire locks every id, in sorted order, waiting until each key is free
// or ctx is done.
//
// Postcondition: On success all keys are held under one token and the
// returned func releases them; on failure none are held.
func (l *Locker) Acquire(ctx context.Context, ids []string) (func(context.Context) error, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, KeyPrefix+id)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	token := l.newToken()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.acquireOne(ctx, key, token); err != nil {
			if relErr := l.release(context.WithoutCancel(ctx), held, token); relErr != nil {
				l.logger.Warn("releasing partial lock set", zap.Error(relErr))
			}
			return nil, err
		}
		held = append(held, key)
	}
	return func(ctx context.Context) error {
		return l.release(ctx, held, token)
	}, nil
}

func (l *Locker) acquireOne(ctx context.Context, key, token string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("locking %s: %w", key, err)
		}
		if ok {
			return nil
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// release frees keys in reverse acquisition order and reports every key
// that no longer carried token.
func (l *Locker) release(ctx context.Context, keys []string, token string) error {
	var errs []error
	for i := len(keys) - 1; i >= 0; i-- {
		n, err := l.client.Eval(ctx, releaseScript, []string{keys[i]}, token).Int()
		if err != nil {
			errs = append(errs, fmt.Errorf("unlocking %s: %w", keys[i], err))
			continue
		}
		if n == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", keys[i], ErrLockLost))
		}
	}
	return errors.Join(errs...)
}
