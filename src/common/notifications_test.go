package common

import (
	"campusmarket/src/lib"
	"campusmarket/src/types"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := uint(3)

	first, err := f.notifications.Notify(ctx, f.buyer.ID, types.NOTIFICATION_RESERVATION_ACCEPTED, "accepted", &itemID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.IsRead)
	_, err = f.notifications.Notify(ctx, f.buyer.ID, types.NOTIFICATION_ITEM_SOLD, "sold", nil)
	require.NoError(t, err)
	_, err = f.notifications.Notify(ctx, f.seller.ID, types.NOTIFICATION_NEW_COMMENT, "comment", &itemID)
	require.NoError(t, err)

	list, err := f.notifications.List(ctx, f.buyer.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, f.buyer.ID, n.RecipientID)
	}

	count, err := f.notifications.UnreadCount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n, err := f.notifications.Notify(ctx, f.buyer.ID, types.NOTIFICATION_RESERVATION_REJECTED, "declined", nil)
	require.NoError(t, err)

	_, err = f.notifications.MarkRead(ctx, n.ID, f.seller.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.notifications.MarkRead(ctx, uuid.New(), f.buyer.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	read, err := f.notifications.MarkRead(ctx, n.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	again, err := f.notifications.MarkRead(ctx, n.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	unread, err := f.notifications.List(ctx, f.buyer.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.notifications.Notify(ctx, f.seller.ID, types.NOTIFICATION_NEW_COMMENT, "comment", nil)
		require.NoError(t, err)
	}
	_, err := f.notifications.Notify(ctx, f.buyer.ID, types.NOTIFICATION_ITEM_SOLD, "sold", nil)
	require.NoError(t, err)

	marked, err := f.notifications.MarkAllRead(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, marked)

	marked, err = f.notifications.MarkAllRead(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)

	count, err := f.notifications.UnreadCount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRealtimePush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	realtime := &recordingRealtime{}
	dispatcher := NewDispatcher(f.db, WithRealtime(realtime))

	_, err := dispatcher.Notify(ctx, f.buyer.ID, types.NOTIFICATION_ITEM_SOLD, "sold", nil)
	require.NoError(t, err)
	dispatcher.Wait()
	assert.Equal(t, []string{UserChannel(f.buyer.ID) + ":notification"}, realtime.channels)

	realtime.err = errors.New("pusher unreachable")
	_, err = dispatcher.Notify(ctx, f.buyer.ID, types.NOTIFICATION_ITEM_SOLD, "sold again", nil)
	require.NoError(t, err)
	dispatcher.Wait()

	count, err := dispatcher.UnreadCount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestNotifyQuietlyIgnoresNil(t *testing.T) {
	notifier := &failingNotifier{}
	notifyQuietly(context.Background(), notifier, nil)
	notifyQuietly(context.Background(), nil, &notice{recipientID: 1})
	assert.Zero(t, notifier.calls)

	notifyQuietly(context.Background(), notifier, &notice{recipientID: 1, kind: types.NOTIFICATION_NEW_COMMENT})
	assert.Equal(t, 1, notifier.calls)
}

type blockingRealtime struct {
	release chan struct{}
	done    atomic.Int32
}

func (r *blockingRealtime) Trigger(channel string, eventName string, data interface{}) error {
	<-r.release
	r.done.Add(1)
	return nil
}

func TestNotifyDoesNotWaitForPush(t *testing.T) {
	f := newFixture(t)
	realtime := &blockingRealtime{release: make(chan struct{})}
	dispatcher := NewDispatcher(f.db, WithRealtime(realtime))

	returned := make(chan error, 1)
	go func() {
		_, err := dispatcher.Notify(context.Background(), f.buyer.ID, types.NOTIFICATION_ITEM_SOLD, "sold", nil)
		returned <- err
	}()
	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(realtime.release)
		t.Fatal("Notify waited for the realtime push")
	}
	assert.Zero(t, realtime.done.Load())

	close(realtime.release)
	dispatcher.Wait()
	assert.EqualValues(t, 1, realtime.done.Load())
}

func TestConcurrentPushesThroughPusherClient(t *testing.T) {
	var (
		mu       sync.Mutex
		requests int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := lib.NewPusherClient("1", "key", "secret", "")
	client.Host = strings.TrimPrefix(srv.URL, "http://")
	client.Secure = false

	f := newFixture(t)
	dispatcher := NewDispatcher(f.db, WithRealtime(client))

	const senders = 4
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dispatcher.Notify(context.Background(), f.buyer.ID, types.NOTIFICATION_RESERVATION_ACCEPTED, "accepted", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	dispatcher.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, senders, requests)

	count, err := dispatcher.UnreadCount(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, senders, count)
}
