package main

import (
	"campusmarket/src/common"
	"campusmarket/src/controllers"

	"github.com/gin-gonic/gin"
)

func bookingHandlers(g *gin.RouterGroup, ctrl *controllers.Controller) *gin.RouterGroup {
	transition := func(kind common.TransitionKind) gin.HandlerFunc {
		return func(ctx *gin.Context) {
			out, status, err := ctrl.BookingsTransition(ctx, kind)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": out})
		}
	}
	g.
		GET("/bookings", func(ctx *gin.Context) {
			bookings, status, err := ctrl.BookingsList(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			booking, status, err := ctrl.BookingsGet(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": booking})
		}).
		POST("/bookings/:id/accept", transition(common.TransitionAccept)).
		POST("/bookings/:id/reject", transition(common.TransitionReject)).
		POST("/bookings/:id/cancel", transition(common.TransitionCancel)).
		POST("/bookings/:id/confirm", transition(common.TransitionConfirm))
	return g
}
