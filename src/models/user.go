package models

import "campusmarket/src/types"

type User struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`

	Items    []Item    `gorm:"foreignKey:SellerID" json:"items,omitempty"`
	Bookings []Booking `gorm:"foreignKey:BuyerID" json:"bookings,omitempty"`

	types.Timestamps
}

func (u User) Principal() types.Principal {
	return types.Principal{ID: u.ID, Email: u.Email, Name: u.Name}
}
