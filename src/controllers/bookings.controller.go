package controllers

import (
	"campusmarket/src/common"
	"campusmarket/src/middlewares"
	"campusmarket/src/models"
	"campusmarket/src/types"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (c *Controller) BookingsList(ctx *gin.Context) (bookings []models.Booking, status int, err error) {
	var query types.BookingQueryFilters
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	bookings, err = c.Bookings.ListBookings(ctx.Request.Context(), principal.ID, query.Role)
	if err != nil {
		log.Printf("[bookings] Error listing bookings for user [%d]: %s\n", principal.ID, err.Error())
		return nil, StatusFor(err), err
	}
	return bookings, http.StatusOK, nil
}

func (c *Controller) BookingsGet(ctx *gin.Context) (booking *models.Booking, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	booking, err = c.Bookings.GetBooking(ctx.Request.Context(), params.ID, principal.ID)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return booking, http.StatusOK, nil
}

// BookingsTransition applies accept, reject, cancel or confirm to the booking
// in the path on behalf of the caller.
func (c *Controller) BookingsTransition(ctx *gin.Context, kind common.TransitionKind) (out *common.Outcome, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	actor := middlewares.Principal(ctx).ID

	var cmd common.Command
	switch kind {
	case common.TransitionAccept:
		cmd = common.Accept{BookingID: params.ID, SellerID: actor}
	case common.TransitionReject:
		cmd = common.Reject{BookingID: params.ID, SellerID: actor}
	case common.TransitionCancel:
		cmd = common.Cancel{BookingID: params.ID, ActorID: actor}
	case common.TransitionConfirm:
		cmd = common.Confirm{BookingID: params.ID, SellerID: actor}
	default:
		return nil, http.StatusBadRequest, fmt.Errorf("%w: %s is not a booking action", common.ErrInvalidInput, kind)
	}
	out, err = c.Bookings.Apply(ctx.Request.Context(), cmd)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return out, http.StatusOK, nil
}
