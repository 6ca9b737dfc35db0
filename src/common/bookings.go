package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventPublisher streams committed transitions to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, payload any) error
}

// Outcome is the committed state after a transition.
type Outcome struct {
	Kind    TransitionKind  `json:"transition"`
	ActorID uint            `json:"actor_id,omitempty"`
	Item    *models.Item    `json:"item"`
	Booking *models.Booking `json:"booking,omitempty"`
}

type BookingEngine struct {
	db        *gorm.DB
	items     *ItemStore
	notifier  Notifier
	publisher EventPublisher
	topic     string
	now       func() time.Time
}

type EngineOption func(*BookingEngine)

func WithPublisher(p EventPublisher, topic string) EngineOption {
	return func(e *BookingEngine) {
		e.publisher = p
		e.topic = topic
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *BookingEngine) {
		e.now = now
	}
}

func NewBookingEngine(db *gorm.DB, items *ItemStore, notifier Notifier, opts ...EngineOption) *BookingEngine {
	e := &BookingEngine{
		db:       db,
		items:    items,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply validates cmd against the current (item, booking) state and commits
// its effect atomically under the item's lock. The notification and the
// broker event are sent after commit; their failures are only logged.
func (e *BookingEngine) Apply(ctx context.Context, cmd Command) (*Outcome, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: missing command", ErrInvalidInput)
	}
	itemID, err := e.resolveItem(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var out *Outcome
	var note *notice
	err = e.items.inItemScope(ctx, itemID, func(tx *gorm.DB, item *models.Item) error {
		var booking *models.Booking
		var err error
		if id, ok := bookingID(cmd); ok {
			if booking, err = lockBookingRow(tx, id); err != nil {
				return err
			}
		}
		out = &Outcome{Kind: cmd.Kind(), Item: item, Booking: booking}

		switch c := cmd.(type) {
		case Reserve:
			out.ActorID = c.BuyerID
			out.Booking, note, err = e.reserve(tx, item, c)
		case Accept:
			out.ActorID = c.SellerID
			note, err = e.accept(tx, item, booking, c)
		case Reject:
			out.ActorID = c.SellerID
			note, err = e.reject(tx, item, booking, c)
		case Cancel:
			out.ActorID = c.ActorID
			note, err = e.cancel(tx, item, booking, c)
		case Confirm:
			out.ActorID = c.SellerID
			note, err = e.confirm(tx, item, booking, c)
		case DirectSell:
			out.ActorID = c.SellerID
			err = e.directSell(tx, item, c)
		case Expire:
			note, err = e.expire(tx, item, booking, c)
		default:
			err = fmt.Errorf("%w: unknown transition %s", ErrInvalidInput, cmd.Kind())
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, out, note)
	return out, nil
}

func (e *BookingEngine) resolveItem(ctx context.Context, cmd Command) (uint, error) {
	switch c := cmd.(type) {
	case Reserve:
		return c.ItemID, nil
	case DirectSell:
		return c.ItemID, nil
	}
	id, _ := bookingID(cmd)
	// A booking never moves between items, so reading item_id outside the
	// lock is safe.
	var booking models.Booking
	err := e.db.
		WithContext(ctx).
		Select("id", "item_id").
		First(&booking, id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return 0, err
	}
	return booking.ItemID, nil
}

func (e *BookingEngine) reserve(tx *gorm.DB, item *models.Item, c Reserve) (*models.Booking, *notice, error) {
	if item.SellerID == c.BuyerID {
		return nil, nil, fmt.Errorf("%w: sellers cannot reserve their own item", ErrForbidden)
	}
	if item.Status != types.ITEM_AVAILABLE {
		return nil, nil, invalidState(TransitionReserve, item, nil)
	}
	var active int64
	err := tx.
		Model(&models.Booking{}).
		Where("item_id = ? AND status IN ?", item.ID, []string{string(types.BOOKING_PENDING), string(types.BOOKING_RESERVED)}).
		Count(&active).
		Error
	if err != nil {
		return nil, nil, err
	}
	if active > 0 {
		log.Printf("[bookings] Item [%d] is available but has %d active booking(s)\n", item.ID, active)
		return nil, nil, invalidState(TransitionReserve, item, nil)
	}

	booking := models.Booking{
		ItemID:  item.ID,
		BuyerID: c.BuyerID,
		Status:  types.BOOKING_PENDING,
	}
	if err := tx.Create(&booking).Error; err != nil {
		return nil, nil, err
	}
	if err := setStatus(tx, item, types.ITEM_PENDING, &booking.ID); err != nil {
		return nil, nil, err
	}
	return &booking, &notice{
		recipientID: item.SellerID,
		kind:        types.NOTIFICATION_RESERVATION_REQUEST,
		message:     fmt.Sprintf("%s wants to reserve your item \"%s\".", e.userName(tx, c.BuyerID), item.Title),
		itemID:      &item.ID,
	}, nil
}

func (e *BookingEngine) accept(tx *gorm.DB, item *models.Item, booking *models.Booking, c Accept) (*notice, error) {
	if item.SellerID != c.SellerID {
		return nil, fmt.Errorf("%w: only the seller can accept booking %d", ErrForbidden, booking.ID)
	}
	if booking.Status != types.BOOKING_PENDING || !Coupled(item, booking) {
		return nil, invalidState(TransitionAccept, item, booking)
	}
	if err := updateBooking(tx, booking, types.BOOKING_RESERVED); err != nil {
		return nil, err
	}
	if err := setStatus(tx, item, types.ITEM_RESERVED, &booking.ID); err != nil {
		return nil, err
	}
	return &notice{
		recipientID: booking.BuyerID,
		kind:        types.NOTIFICATION_RESERVATION_ACCEPTED,
		message:     fmt.Sprintf("Your reservation for \"%s\" was accepted.", item.Title),
		itemID:      &item.ID,
	}, nil
}

func (e *BookingEngine) reject(tx *gorm.DB, item *models.Item, booking *models.Booking, c Reject) (*notice, error) {
	if item.SellerID != c.SellerID {
		return nil, fmt.Errorf("%w: only the seller can reject booking %d", ErrForbidden, booking.ID)
	}
	if booking.Status != types.BOOKING_PENDING || !Coupled(item, booking) {
		return nil, invalidState(TransitionReject, item, booking)
	}
	if err := updateBooking(tx, booking, types.BOOKING_REJECTED); err != nil {
		return nil, err
	}
	if err := setStatus(tx, item, types.ITEM_AVAILABLE, nil); err != nil {
		return nil, err
	}
	return &notice{
		recipientID: booking.BuyerID,
		kind:        types.NOTIFICATION_RESERVATION_REJECTED,
		message:     fmt.Sprintf("Your reservation for \"%s\" was declined.", item.Title),
		itemID:      &item.ID,
	}, nil
}

func (e *BookingEngine) cancel(tx *gorm.DB, item *models.Item, booking *models.Booking, c Cancel) (*notice, error) {
	byBuyer := booking.BuyerID == c.ActorID
	if !byBuyer && item.SellerID != c.ActorID {
		return nil, fmt.Errorf("%w: not a party to booking %d", ErrForbidden, booking.ID)
	}
	if !booking.Status.Active() || !Coupled(item, booking) {
		return nil, invalidState(TransitionCancel, item, booking)
	}
	if err := updateBooking(tx, booking, types.BOOKING_CANCELLED); err != nil {
		return nil, err
	}
	if err := setStatus(tx, item, types.ITEM_AVAILABLE, nil); err != nil {
		return nil, err
	}
	n := &notice{
		kind:   types.NOTIFICATION_RESERVATION_CANCELLED,
		itemID: &item.ID,
	}
	if byBuyer {
		n.recipientID = item.SellerID
		n.message = fmt.Sprintf("%s cancelled their reservation for \"%s\".", e.userName(tx, booking.BuyerID), item.Title)
	} else {
		n.recipientID = booking.BuyerID
		n.message = fmt.Sprintf("The seller cancelled your reservation for \"%s\".", item.Title)
	}
	return n, nil
}

func (e *BookingEngine) confirm(tx *gorm.DB, item *models.Item, booking *models.Booking, c Confirm) (*notice, error) {
	if item.SellerID != c.SellerID {
		return nil, fmt.Errorf("%w: only the seller can confirm booking %d", ErrForbidden, booking.ID)
	}
	if booking.Status != types.BOOKING_RESERVED || !Coupled(item, booking) {
		return nil, invalidState(TransitionConfirm, item, booking)
	}
	if err := updateBooking(tx, booking, types.BOOKING_CONFIRMED); err != nil {
		return nil, err
	}
	if err := setStatus(tx, item, types.ITEM_SOLD, &booking.ID); err != nil {
		return nil, err
	}
	return &notice{
		recipientID: booking.BuyerID,
		kind:        types.NOTIFICATION_ITEM_SOLD,
		message:     fmt.Sprintf("\"%s\" is yours. The seller marked the sale as complete.", item.Title),
		itemID:      &item.ID,
	}, nil
}

func (e *BookingEngine) directSell(tx *gorm.DB, item *models.Item, c DirectSell) error {
	if item.SellerID != c.SellerID {
		return fmt.Errorf("%w: only the seller can mark item %d as sold", ErrForbidden, item.ID)
	}
	if item.Status != types.ITEM_AVAILABLE {
		return invalidState(TransitionDirectSell, item, nil)
	}
	return setStatus(tx, item, types.ITEM_SOLD, nil)
}

func (e *BookingEngine) expire(tx *gorm.DB, item *models.Item, booking *models.Booking, c Expire) (*notice, error) {
	if booking.Status != types.BOOKING_PENDING || !Coupled(item, booking) || !booking.CreatedAt.Before(c.Cutoff) {
		return nil, invalidState(TransitionExpire, item, booking)
	}
	if err := updateBooking(tx, booking, types.BOOKING_CANCELLED); err != nil {
		return nil, err
	}
	if err := setStatus(tx, item, types.ITEM_AVAILABLE, nil); err != nil {
		return nil, err
	}
	return &notice{
		recipientID: booking.BuyerID,
		kind:        types.NOTIFICATION_RESERVATION_EXPIRED,
		message:     fmt.Sprintf("Your reservation request for \"%s\" expired before the seller responded.", item.Title),
		itemID:      &item.ID,
	}, nil
}

func (e *BookingEngine) afterCommit(ctx context.Context, out *Outcome, note *notice) {
	notifyQuietly(ctx, e.notifier, note)
	if e.publisher == nil {
		return
	}
	payload := types.JSONB{
		"transition":  out.Kind,
		"actor_id":    out.ActorID,
		"item_id":     out.Item.ID,
		"item_status": out.Item.Status,
		"at":          e.now().UTC().Format(time.RFC3339Nano),
	}
	if out.Booking != nil {
		payload["booking_id"] = out.Booking.ID
		payload["booking_status"] = out.Booking.Status
		payload["buyer_id"] = out.Booking.BuyerID
	}
	key := strconv.FormatUint(uint64(out.Item.ID), 10)
	if err := e.publisher.Publish(context.WithoutCancel(ctx), e.topic, key, payload); err != nil {
		log.Printf("[bookings] Could not publish %s for item [%d]: %s\n", out.Kind, out.Item.ID, err.Error())
	}
}

func (e *BookingEngine) userName(tx *gorm.DB, id uint) string {
	var user models.User
	if err := tx.Select("id", "name").First(&user, id).Error; err != nil || user.Name == "" {
		return "A buyer"
	}
	return user.Name
}

// GetBooking returns a booking visible to its buyer and the item's seller.
func (e *BookingEngine) GetBooking(ctx context.Context, id uint, userID uint) (*models.Booking, error) {
	var booking models.Booking
	err := e.db.
		WithContext(ctx).
		Preload("Item", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Buyer").
		First(&booking, id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if booking.BuyerID != userID && (booking.Item == nil || booking.Item.SellerID != userID) {
		return nil, fmt.Errorf("%w: not a party to booking %d", ErrForbidden, id)
	}
	return &booking, nil
}

// ListBookings returns the user's bookings as buyer, or the bookings on the
// user's items when role is "seller".
func (e *BookingEngine) ListBookings(ctx context.Context, userID uint, role string) ([]models.Booking, error) {
	q := e.db.
		WithContext(ctx).
		Model(&models.Booking{}).
		Preload("Item", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	switch role {
	case "", "buyer":
		q = q.Where("buyer_id = ?", userID)
	case "seller":
		q = q.Where("item_id IN (?)", e.db.Unscoped().Model(&models.Item{}).Select("id").Where("seller_id = ?", userID))
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	bookings := make([]models.Booking, 0)
	if err := q.Order("created_at desc").Order("id desc").Limit(100).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func lockBookingRow(tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func updateBooking(tx *gorm.DB, booking *models.Booking, status types.BookingStatus) error {
	err := tx.
		Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Update("status", string(status)).
		Error
	if err != nil {
		return err
	}
	booking.Status = status
	return nil
}
