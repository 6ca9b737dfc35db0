package models

import (
	"campusmarket/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID          uuid.UUID              `gorm:"primarykey;size:36" json:"id"`
	RecipientID uint                   `gorm:"index;not null" json:"recipient_id"`
	Type        types.NotificationType `gorm:"size:32;not null" json:"type"`
	Message     string                 `json:"message"`
	ItemID      *uint                  `gorm:"index" json:"item_id,omitempty"`
	IsRead      bool                   `gorm:"index;default:false" json:"is_read"`
	CreatedAt   time.Time              `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
