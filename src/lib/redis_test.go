package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedToken() string { return "token-1" }

func TestRedisLockerAcquireRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "market", WithLockToken(fixedToken))

	mock.ExpectSetNX("market:lock:item:7", "token-1", 10*time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"market:lock:item:7"}, "token-1").SetVal(int64(1))

	unlock, err := locker.Lock(context.Background(), 7)
	require.NoError(t, err)
	unlock()
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerRetriesWhileHeld(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "market",
		WithLockToken(fixedToken),
		WithLockTTL(time.Second),
		WithLockRetry(time.Millisecond, time.Second),
	)

	mock.ExpectSetNX("market:lock:item:3", "token-1", time.Second).SetVal(false)
	mock.ExpectSetNX("market:lock:item:3", "token-1", time.Second).SetVal(false)
	mock.ExpectSetNX("market:lock:item:3", "token-1", time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"market:lock:item:3"}, "token-1").SetVal(int64(1))

	unlock, err := locker.Lock(context.Background(), 3)
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerGivesUp(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "market",
		WithLockToken(fixedToken),
		WithLockRetry(time.Millisecond, 0),
	)

	mock.ExpectSetNX("market:lock:item:5", "token-1", 10*time.Second).SetVal(false)

	_, err := locker.Lock(context.Background(), 5)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "market", WithLockToken(fixedToken))

	mock.ExpectSetNX("market:lock:item:1", "token-1", 10*time.Second).SetErr(errors.New("connection refused"))

	_, err := locker.Lock(context.Background(), 1)
	assert.EqualError(t, err, "connection refused")
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://:secret@localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)

	_, err = NewRedisClient("not a url")
	assert.Error(t, err)
}
