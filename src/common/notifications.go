package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier records a user-facing event. Callers outside this file go through
// notifyQuietly, so a failing Notifier never fails their operation.
type Notifier interface {
	Notify(ctx context.Context, recipientID uint, kind types.NotificationType, message string, itemID *uint) (*models.Notification, error)
}

// RealtimeClient pushes an event to a subscribed channel. *pusher.Client
// satisfies it.
type RealtimeClient interface {
	Trigger(channel string, eventName string, data interface{}) error
}

type Dispatcher struct {
	db       *gorm.DB
	realtime RealtimeClient
	pushes   sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithRealtime(client RealtimeClient) DispatcherOption {
	return func(d *Dispatcher) {
		d.realtime = client
	}
}

func NewDispatcher(db *gorm.DB, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{db: db}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func UserChannel(userID uint) string {
	return fmt.Sprintf("private-user-%d", userID)
}

func (d *Dispatcher) Notify(ctx context.Context, recipientID uint, kind types.NotificationType, message string, itemID *uint) (*models.Notification, error) {
	n := models.Notification{
		RecipientID: recipientID,
		Type:        kind,
		Message:     message,
		ItemID:      itemID,
	}
	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	if d.realtime != nil {
		d.push(n)
	}
	return &n, nil
}

// push delivers n to the recipient's channel in the background. Failures are
// only logged.
func (d *Dispatcher) push(n models.Notification) {
	d.pushes.Add(1)
	go func() {
		defer d.pushes.Done()
		if err := d.realtime.Trigger(UserChannel(n.RecipientID), "notification", n); err != nil {
			log.Printf("[notifications] Realtime push to user [%d] failed: %s\n", n.RecipientID, err.Error())
		}
	}()
}

// Wait blocks until every pending realtime push has finished.
func (d *Dispatcher) Wait() {
	d.pushes.Wait()
}

func (d *Dispatcher) List(ctx context.Context, recipientID uint, unreadOnly bool) ([]models.Notification, error) {
	q := d.db.
		WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	notifications := make([]models.Notification, 0)
	if err := q.Order("created_at desc").Limit(100).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (d *Dispatcher) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := d.db.
		WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).
		Error
	return count, err
}

func (d *Dispatcher) MarkRead(ctx context.Context, id uuid.UUID, recipientID uint) (*models.Notification, error) {
	var n models.Notification
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).First(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: notification %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if n.RecipientID != recipientID {
			return fmt.Errorf("%w: notification %s belongs to another user", ErrForbidden, id)
		}
		if n.IsRead {
			return nil
		}
		if err := tx.Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true).Error; err != nil {
			return err
		}
		n.IsRead = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	res := d.db.
		WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

type notice struct {
	recipientID uint
	kind        types.NotificationType
	message     string
	itemID      *uint
}

// notifyQuietly delivers a post-commit notice. Failures are logged, never
// returned, and not retried.
func notifyQuietly(ctx context.Context, notifier Notifier, n *notice) {
	if notifier == nil || n == nil {
		return
	}
	if _, err := notifier.Notify(context.WithoutCancel(ctx), n.recipientID, n.kind, n.message, n.itemID); err != nil {
		log.Printf("[notifications] Could not notify user [%d] of %s: %s\n", n.recipientID, n.kind, err.Error())
	}
}
