package models

import "campusmarket/src/types"

type Item struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	SellerID    uint             `gorm:"index;not null" json:"seller_id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Slug        string           `gorm:"size:255;index" json:"slug"`
	Description string           `json:"description,omitempty"`
	Price       float64          `json:"price"`
	Category    string           `gorm:"size:64;index" json:"category,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Status      types.ItemStatus `gorm:"size:16;index;default:'available'" json:"status"`
	// BookingID links the item to its active booking, or to the confirmed
	// one once sold. Nil while available or after a direct sale.
	BookingID *uint `json:"booking_id,omitempty"`

	Seller *User `gorm:"foreignKey:SellerID" json:"seller,omitempty"`

	types.Timestamps
}
