package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"fmt"
	"time"
)

type TransitionKind string

const (
	TransitionReserve    TransitionKind = "reserve"
	TransitionAccept     TransitionKind = "accept"
	TransitionReject     TransitionKind = "reject"
	TransitionCancel     TransitionKind = "cancel"
	TransitionConfirm    TransitionKind = "confirm"
	TransitionDirectSell TransitionKind = "direct_sell"
	TransitionExpire     TransitionKind = "expire"
)

// Command is one of Reserve, Accept, Reject, Cancel, Confirm, DirectSell or
// Expire. It is the only way to change an item's status.
type Command interface {
	Kind() TransitionKind
}

// Reserve is a buyer's request to claim an available item.
type Reserve struct {
	ItemID  uint
	BuyerID uint
}

type Accept struct {
	BookingID uint
	SellerID  uint
}

type Reject struct {
	BookingID uint
	SellerID  uint
}

// Cancel withdraws an active booking. ActorID may be the buyer or the seller.
type Cancel struct {
	BookingID uint
	ActorID   uint
}

// Confirm marks a reserved item as sold to the booking's buyer.
type Confirm struct {
	BookingID uint
	SellerID  uint
}

// DirectSell marks an available item as sold without any booking.
type DirectSell struct {
	ItemID   uint
	SellerID uint
}

// Expire cancels a pending booking created before Cutoff. Issued by the
// sweep, never by a user.
type Expire struct {
	BookingID uint
	Cutoff    time.Time
}

func (Reserve) Kind() TransitionKind    { return TransitionReserve }
func (Accept) Kind() TransitionKind     { return TransitionAccept }
func (Reject) Kind() TransitionKind     { return TransitionReject }
func (Cancel) Kind() TransitionKind     { return TransitionCancel }
func (Confirm) Kind() TransitionKind    { return TransitionConfirm }
func (DirectSell) Kind() TransitionKind { return TransitionDirectSell }
func (Expire) Kind() TransitionKind     { return TransitionExpire }

// bookingID returns the booking a command targets, if any.
func bookingID(cmd Command) (uint, bool) {
	switch c := cmd.(type) {
	case Accept:
		return c.BookingID, true
	case Reject:
		return c.BookingID, true
	case Cancel:
		return c.BookingID, true
	case Confirm:
		return c.BookingID, true
	case Expire:
		return c.BookingID, true
	}
	return 0, false
}

// Coupled reports whether item and booking agree: the item links to the
// booking and the item status mirrors the booking status.
func Coupled(item *models.Item, booking *models.Booking) bool {
	if item == nil || booking == nil {
		return false
	}
	if item.BookingID == nil || *item.BookingID != booking.ID || booking.ItemID != item.ID {
		return false
	}
	switch booking.Status {
	case types.BOOKING_PENDING:
		return item.Status == types.ITEM_PENDING
	case types.BOOKING_RESERVED:
		return item.Status == types.ITEM_RESERVED
	case types.BOOKING_CONFIRMED:
		return item.Status == types.ITEM_SOLD
	}
	return false
}

func invalidState(kind TransitionKind, item *models.Item, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("%w: cannot %s item %d while %s", ErrInvalidState, kind, item.ID, item.Status)
	}
	return fmt.Errorf("%w: cannot %s booking %d (%s) on item %d (%s)", ErrInvalidState, kind, booking.ID, booking.Status, item.ID, item.Status)
}
