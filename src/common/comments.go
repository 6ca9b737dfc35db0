package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type CommentThread struct {
	db       *gorm.DB
	notifier Notifier
}

func NewCommentThread(db *gorm.DB, notifier Notifier) *CommentThread {
	return &CommentThread{db: db, notifier: notifier}
}

// PostComment adds a top-level comment, or a reply when parentID is set.
// Only one level of replies is allowed.
func (c *CommentThread) PostComment(ctx context.Context, itemID uint, authorID uint, text string, parentID *uint) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrInvalidInput)
	}

	var item models.Item
	if err := c.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}
		return nil, err
	}

	var parent *models.Comment
	if parentID != nil {
		var p models.Comment
		err := c.db.WithContext(ctx).First(&p, *parentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.ItemID != itemID) {
			return nil, fmt.Errorf("%w: comment %d on item %d", ErrNotFound, *parentID, itemID)
		}
		if err != nil {
			return nil, err
		}
		if p.ParentID != nil {
			return nil, fmt.Errorf("%w: cannot reply to a reply", ErrInvalidInput)
		}
		parent = &p
	}

	comment := models.Comment{
		ItemID:   itemID,
		AuthorID: authorID,
		Text:     text,
		ParentID: parentID,
	}
	if err := c.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Preload("Author").First(&comment, comment.ID).Error; err != nil {
		return nil, err
	}
	comment.FillAuthor()

	author := comment.AuthorName
	if author == "" {
		author = "Someone"
	}
	n := &notice{itemID: &item.ID}
	if parent == nil {
		n.recipientID = item.SellerID
		n.kind = types.NOTIFICATION_NEW_COMMENT
		n.message = fmt.Sprintf("%s commented on \"%s\".", author, item.Title)
	} else {
		n.recipientID = parent.AuthorID
		n.kind = types.NOTIFICATION_COMMENT_REPLY
		n.message = fmt.Sprintf("%s replied to your comment on \"%s\".", author, item.Title)
	}
	if n.recipientID != authorID {
		notifyQuietly(ctx, c.notifier, n)
	}
	return &comment, nil
}

// ListComments returns an item's comments oldest first with author display
// fields filled in.
func (c *CommentThread) ListComments(ctx context.Context, itemID uint) ([]models.Comment, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&models.Item{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	comments := make([]models.Comment, 0)
	err := c.db.
		WithContext(ctx).
		Where("item_id = ?", itemID).
		Preload("Author").
		Order("created_at asc").
		Order("id asc").
		Find(&comments).
		Error
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].FillAuthor()
	}
	return comments, nil
}
