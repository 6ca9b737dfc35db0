package common

import (
	"campusmarket/src/models"
	"campusmarket/src/types"
	"context"
	"errors"
	"log"
	"time"
)

// ExpireStalePending cancels pending bookings older than ttl. A booking the
// seller answered in the meantime fails with ErrInvalidState and is skipped.
func (e *BookingEngine) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := e.now().Add(-ttl)
	var ids []uint
	err := e.db.
		WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ? AND created_at < ?", string(types.BOOKING_PENDING), cutoff).
		Order("created_at asc").
		Limit(100).
		Pluck("id", &ids).
		Error
	if err != nil {
		log.Printf("[bookings] Error retrieving stale bookings: %s\n", err.Error())
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		_, err := e.Apply(ctx, Expire{BookingID: id, Cutoff: cutoff})
		if errors.Is(err, ErrInvalidState) {
			continue
		}
		if err != nil {
			log.Printf("[bookings] Failed to expire booking [%d]: %s\n", id, err.Error())
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("[bookings] Expired %d pending booking(s)\n", expired)
	}
	return expired, nil
}
