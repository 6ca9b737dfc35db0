package controllers

import (
	"campusmarket/src/common"
	"campusmarket/src/lib"
	"context"
	"errors"
	"net/http"
)

// RealtimeAuthorizer signs private channel subscriptions. *pusher.Client
// satisfies it.
type RealtimeAuthorizer interface {
	AuthorizePrivateChannel(params []byte) ([]byte, error)
}

type Controller struct {
	Items         *common.ItemStore
	Bookings      *common.BookingEngine
	Notifications *common.Dispatcher
	Comments      *common.CommentThread
	Realtime      RealtimeAuthorizer
}

// StatusFor maps a core error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, lib.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
