package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemFields struct {
	Title       string  `validate:"required,max=255"`
	Description string  `validate:"max=5000"`
	Price       float64 `validate:"gt=0"`
	Category    string  `validate:"max=64"`
	ImageURL    string  `validate:"omitempty,max=1024"`
}

// ItemPatch carries an owner edit. Nil fields are left untouched.
type ItemPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Category    *string
	ImageURL    *string
}

type ItemFilter struct {
	SellerID uint
	Status   types.ItemStatus
	Category string
	Limit    int
}

// ItemStore persists items. The status column is only written by setStatus,
// which the booking engine calls inside an item scope.
type ItemStore struct {
	db       *gorm.DB
	locker   ItemLocker
	validate *validator.Validate
}

func NewItemStore(db *gorm.DB, locker ItemLocker) *ItemStore {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &ItemStore{
		db:       db,
		locker:   locker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *ItemStore) CreateItem(ctx context.Context, sellerID uint, fields ItemFields) (*models.Item, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	fields.Category = strings.TrimSpace(fields.Category)
	if err := s.validate.Struct(fields); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	item := models.Item{
		SellerID:    sellerID,
		Title:       fields.Title,
		Slug:        slug.Make(fields.Title),
		Description: fields.Description,
		Price:       fields.Price,
		Category:    fields.Category,
		ImageURL:    fields.ImageURL,
		Status:      types.ITEM_AVAILABLE,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		log.Printf("[items] Error creating item for seller [%d]: %s\n", sellerID, err.Error())
		return nil, err
	}
	return &item, nil
}

func (s *ItemStore) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := s.db.
		WithContext(ctx).
		Preload("Seller").
		First(&item, id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *ItemStore) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&models.Item{})
	if filter.SellerID != 0 {
		q = q.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	items := make([]models.Item, 0)
	if err := q.Order("created_at desc").Order("id desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ItemStore) UpdateItem(ctx context.Context, id uint, requesterID uint, patch ItemPatch) (*models.Item, error) {
	var updated *models.Item
	err := s.inItemScope(ctx, id, func(tx *gorm.DB, item *models.Item) error {
		if item.SellerID != requesterID {
			return fmt.Errorf("%w: only the seller can edit item %d", ErrForbidden, id)
		}
		if item.Status == types.ITEM_SOLD {
			return fmt.Errorf("%w: item %d is sold", ErrInvalidState, id)
		}
		fields := ItemFields{
			Title:       item.Title,
			Description: item.Description,
			Price:       item.Price,
			Category:    item.Category,
			ImageURL:    item.ImageURL,
		}
		if patch.Title != nil {
			fields.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			fields.Description = *patch.Description
		}
		if patch.Price != nil {
			fields.Price = *patch.Price
		}
		if patch.Category != nil {
			fields.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.ImageURL != nil {
			fields.ImageURL = *patch.ImageURL
		}
		if err := s.validate.Struct(fields); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
		}
		err := tx.
			Model(&models.Item{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"title":       fields.Title,
				"slug":        slug.Make(fields.Title),
				"description": fields.Description,
				"price":       fields.Price,
				"category":    fields.Category,
				"image_url":   fields.ImageURL,
			}).
			Error
		if err != nil {
			return err
		}
		item.Title = fields.Title
		item.Slug = slug.Make(fields.Title)
		item.Description = fields.Description
		item.Price = fields.Price
		item.Category = fields.Category
		item.ImageURL = fields.ImageURL
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem soft-deletes a listing nobody holds a claim on.
func (s *ItemStore) DeleteItem(ctx context.Context, id uint, requesterID uint) error {
	return s.inItemScope(ctx, id, func(tx *gorm.DB, item *models.Item) error {
		if item.SellerID != requesterID {
			return fmt.Errorf("%w: only the seller can delete item %d", ErrForbidden, id)
		}
		if item.Status != types.ITEM_AVAILABLE {
			return fmt.Errorf("%w: item %d is %s", ErrInvalidState, id, item.Status)
		}
		return tx.Delete(&models.Item{}, id).Error
	})
}

// inItemScope runs fn in a transaction while holding the item's lock, with
// the item row re-read under FOR UPDATE.
func (s *ItemStore) inItemScope(ctx context.Context, itemID uint, fn func(tx *gorm.DB, item *models.Item) error) error {
	unlock, err := s.locker.Lock(ctx, itemID)
	if err != nil {
		return fmt.Errorf("could not lock item %d: %w", itemID, err)
	}
	defer unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := lockItemRow(tx, itemID)
		if err != nil {
			return err
		}
		return fn(tx, item)
	})
}

func lockItemRow(tx *gorm.DB, id uint) (*models.Item, error) {
	var item models.Item
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: item %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func setStatus(tx *gorm.DB, item *models.Item, status types.ItemStatus, bookingID *uint) error {
	err := tx.
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"status":     string(status),
			"booking_id": bookingID,
		}).
		Error
	if err != nil {
		return err
	}
	item.Status = status
	item.BookingID = bookingID
	return nil
}
