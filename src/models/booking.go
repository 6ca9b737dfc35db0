package models

import "campusmarket/src/types"

type Booking struct {
	ID      uint                `gorm:"primarykey" json:"id"`
	ItemID  uint                `gorm:"index;not null" json:"item_id"`
	BuyerID uint                `gorm:"index;not null" json:"buyer_id"`
	Status  types.BookingStatus `gorm:"size:16;index;default:'pending'" json:"status"`

	Item  *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Buyer *User `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`

	types.Timestamps
}
