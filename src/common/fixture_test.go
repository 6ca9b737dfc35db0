package common

import (
	"campusmarket/src/db"
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db            *gorm.DB
	locker        *MemoryLocker
	items         *ItemStore
	notifications *Dispatcher
	engine        *BookingEngine
	comments      *CommentThread

	seller models.User
	buyer  models.User
	other  models.User
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	gormDB, err := db.NewMemoryDB(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{db: gormDB, locker: NewMemoryLocker()}
	f.items = NewItemStore(gormDB, f.locker)
	f.notifications = NewDispatcher(gormDB)
	f.engine = NewBookingEngine(gormDB, f.items, f.notifications, opts...)
	f.comments = NewCommentThread(gormDB, f.notifications)

	f.seller = f.createUser(t, "Sam Seller", "sam@campus.edu")
	f.buyer = f.createUser(t, "Bea Buyer", "bea@campus.edu")
	f.other = f.createUser(t, "Oli Other", "oli@campus.edu")
	return f
}

func (f *fixture) createUser(t *testing.T, name string, email string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Picture: "https://img.campus.edu/" + strings.Split(email, "@")[0] + ".png"}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) createItem(t *testing.T, title string) *models.Item {
	t.Helper()
	item, err := f.items.CreateItem(context.Background(), f.seller.ID, ItemFields{
		Title:    title,
		Price:    25,
		Category: "books",
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) reserve(t *testing.T, itemID uint, buyerID uint) *models.Booking {
	t.Helper()
	out, err := f.engine.Apply(context.Background(), Reserve{ItemID: itemID, BuyerID: buyerID})
	require.NoError(t, err)
	require.NotNil(t, out.Booking)
	return out.Booking
}

func (f *fixture) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	list, err := f.notifications.List(context.Background(), userID, false)
	require.NoError(t, err)
	return list
}

func (f *fixture) notificationTypes(t *testing.T, userID uint) []types.NotificationType {
	t.Helper()
	kinds := make([]types.NotificationType, 0)
	for _, n := range f.notificationsFor(t, userID) {
		kinds = append(kinds, n.Type)
	}
	return kinds
}

// assertConsistent checks the item/booking coupling straight from the tables.
func (f *fixture) assertConsistent(t *testing.T, itemID uint) {
	t.Helper()
	var item models.Item
	require.NoError(t, f.db.First(&item, itemID).Error)
	var active []models.Booking
	require.NoError(t, f.db.
		Where("item_id = ? AND status IN ?", itemID, []string{"pending", "reserved"}).
		Find(&active).Error)

	switch item.Status {
	case types.ITEM_AVAILABLE:
		assert.Nil(t, item.BookingID, "available item must not link a booking")
		assert.Empty(t, active, "available item must not have active bookings")
	case types.ITEM_PENDING, types.ITEM_RESERVED:
		require.Len(t, active, 1, "exactly one active booking expected")
		require.NotNil(t, item.BookingID)
		assert.Equal(t, active[0].ID, *item.BookingID)
		assert.True(t, Coupled(&item, &active[0]), "item %s vs booking %s", item.Status, active[0].Status)
	case types.ITEM_SOLD:
		assert.Empty(t, active, "sold item must not have active bookings")
		if item.BookingID != nil {
			var booking models.Booking
			require.NoError(t, f.db.First(&booking, *item.BookingID).Error)
			assert.Equal(t, types.BOOKING_CONFIRMED, booking.Status)
		}
	default:
		t.Fatalf("unexpected item status %q", item.Status)
	}
}

type failingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *failingNotifier) Notify(ctx context.Context, recipientID uint, kind types.NotificationType, message string, itemID *uint) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil, errors.New("notification store unavailable")
}

type published struct {
	topic   string
	key     string
	payload types.JSONB
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: key, payload: payload.(types.JSONB)})
	return p.err
}

type recordingRealtime struct {
	mu       sync.Mutex
	channels []string
	err      error
}

func (r *recordingRealtime) Trigger(channel string, eventName string, data interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel+":"+eventName)
	return r.err
}
