package main

import (
	"campusmarket/src/controllers"

	"github.com/gin-gonic/gin"
)

func itemHandlers(g *gin.RouterGroup, ctrl *controllers.Controller) *gin.RouterGroup {
	g.
		GET("/items", func(ctx *gin.Context) {
			items, status, err := ctrl.ItemsList(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": items, "count": len(items)})
		}).
		POST("/items", func(ctx *gin.Context) {
			item, status, err := ctrl.ItemsCreate(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": item})
		}).
		GET("/items/:id", func(ctx *gin.Context) {
			item, status, err := ctrl.ItemsGet(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": item})
		}).
		PUT("/items/:id", func(ctx *gin.Context) {
			item, status, err := ctrl.ItemsUpdate(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": item})
		}).
		DELETE("/items/:id", func(ctx *gin.Context) {
			status, err := ctrl.ItemsDelete(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.Status(status)
		}).
		POST("/items/:id/reserve", func(ctx *gin.Context) {
			out, status, err := ctrl.ItemsReserve(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": out})
		}).
		POST("/items/:id/sold", func(ctx *gin.Context) {
			out, status, err := ctrl.ItemsMarkSold(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": out})
		})
	return g
}
