package models

import "time"

type Comment struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	ItemID   uint   `gorm:"index;not null" json:"item_id"`
	AuthorID uint   `gorm:"index;not null" json:"user_id"`
	Text     string `gorm:"not null" json:"comment_text"`
	// ParentID is set on replies. Replies to replies are rejected.
	ParentID  *uint     `gorm:"index" json:"parent_comment_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`

	AuthorName    string `gorm:"-" json:"user_name"`
	AuthorPicture string `gorm:"-" json:"user_picture"`
}

// FillAuthor copies the preloaded author's display fields onto the comment.
func (c *Comment) FillAuthor() {
	if c.Author == nil {
		return
	}
	c.AuthorName = c.Author.Name
	c.AuthorPicture = c.Author.Picture
}
