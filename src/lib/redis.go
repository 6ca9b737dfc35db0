package lib

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// compare-and-delete so a holder whose lease expired cannot release the next
// holder's lock
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

var ErrLockTimeout = errors.New("timed out waiting for item lock")

func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// RedisLocker is an item lock shared by every API replica. Each lock is a
// SET NX key with a lease, so a crashed holder frees the item after TTL.
type RedisLocker struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
	token   func() string
}

type RedisLockerOption func(*RedisLocker)

func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.ttl = ttl
	}
}

func WithLockRetry(retry time.Duration, maxWait time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.retry = retry
		l.maxWait = maxWait
	}
}

func WithLockToken(token func() string) RedisLockerOption {
	return func(l *RedisLocker) {
		l.token = token
	}
}

func NewRedisLocker(client redis.Cmdable, prefix string, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:  client,
		prefix:  prefix,
		ttl:     10 * time.Second,
		retry:   25 * time.Millisecond,
		maxWait: 5 * time.Second,
		token:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Key(itemID uint) string {
	return fmt.Sprintf("%s:lock:item:%d", l.prefix, itemID)
}

func (l *RedisLocker) Lock(ctx context.Context, itemID uint) (func(), error) {
	key := l.Key(itemID)
	token := l.token()
	deadline := time.Now().Add(l.maxWait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			log.Printf("[redis] Error acquiring %s: %s\n", key, err.Error())
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

func (l *RedisLocker) release(key string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.client.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
		log.Printf("[redis] Error releasing %s: %s\n", key, err.Error())
	}
}
