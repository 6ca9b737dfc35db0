package main

import (
	"campusmarket/src/controllers"

	"github.com/gin-gonic/gin"
)

func notificationHandlers(g *gin.RouterGroup, ctrl *controllers.Controller) *gin.RouterGroup {
	g.
		GET("/notifications", func(ctx *gin.Context) {
			notifications, status, err := ctrl.NotificationsList(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": notifications, "count": len(notifications)})
		}).
		GET("/notifications/unread-count", func(ctx *gin.Context) {
			count, status, err := ctrl.NotificationsUnreadCount(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"count": count})
		}).
		PUT("/notifications/read-all", func(ctx *gin.Context) {
			updated, status, err := ctrl.NotificationsMarkAllRead(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"updated": updated})
		}).
		PUT("/notifications/:id/read", func(ctx *gin.Context) {
			notification, status, err := ctrl.NotificationsMarkRead(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": notification})
		}).
		POST("/realtime/auth", func(ctx *gin.Context) {
			response, status, err := ctrl.RealtimeAuthorize(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.Data(status, "application/json", response)
		})
	return g
}
