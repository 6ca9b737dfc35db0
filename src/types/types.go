package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

// JSONB is a free-form event payload.
type JSONB map[string]any

type ItemStatus string

const (
	ITEM_AVAILABLE ItemStatus = "available"
	ITEM_PENDING   ItemStatus = "pending"
	ITEM_RESERVED  ItemStatus = "reserved"
	ITEM_SOLD      ItemStatus = "sold"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_RESERVED  BookingStatus = "reserved"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_REJECTED  BookingStatus = "rejected"
)

// Active reports whether the booking still holds a claim on its item.
func (s BookingStatus) Active() bool {
	return s == BOOKING_PENDING || s == BOOKING_RESERVED
}

type NotificationType string

const (
	NOTIFICATION_RESERVATION_REQUEST   NotificationType = "reservation_request"
	NOTIFICATION_RESERVATION_ACCEPTED  NotificationType = "reservation_accepted"
	NOTIFICATION_RESERVATION_REJECTED  NotificationType = "reservation_rejected"
	NOTIFICATION_RESERVATION_CANCELLED NotificationType = "reservation_cancelled"
	NOTIFICATION_RESERVATION_EXPIRED   NotificationType = "reservation_expired"
	NOTIFICATION_ITEM_SOLD             NotificationType = "item_sold"
	NOTIFICATION_NEW_COMMENT           NotificationType = "new_comment"
	NOTIFICATION_COMMENT_REPLY         NotificationType = "comment_reply"
)

// Principal is the authenticated caller as resolved by the auth middleware.
type Principal struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type NotificationRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreateItemRequestBody struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price" binding:"gt=0"`
	Category    string  `json:"category,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

type UpdateItemRequestBody struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" binding:"omitempty,gt=0"`
	Category    *string  `json:"category,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
}

type ItemQueryFilters struct {
	Seller   uint   `form:"seller,omitempty"`
	Status   string `form:"status,omitempty" binding:"omitempty,oneof=available pending reserved sold"`
	Category string `form:"category,omitempty"`
}

type BookingQueryFilters struct {
	Role string `form:"role,omitempty" binding:"omitempty,oneof=buyer seller"`
}

type NotificationQueryFilters struct {
	Unread bool `form:"unread,omitempty"`
}

type CreateCommentRequestBody struct {
	ItemID   uint   `json:"item_id" binding:"required"`
	Text     string `json:"comment_text"`
	ParentID *uint  `json:"parent_comment_id,omitempty"`
}
