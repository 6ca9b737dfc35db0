package main

import (
	"campusmarket/src/controllers"

	"github.com/gin-gonic/gin"
)

func commentHandlers(g *gin.RouterGroup, ctrl *controllers.Controller) *gin.RouterGroup {
	g.
		GET("/items/:id/comments", func(ctx *gin.Context) {
			comments, status, err := ctrl.CommentsList(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": comments, "count": len(comments)})
		}).
		POST("/comments", func(ctx *gin.Context) {
			comment, status, err := ctrl.CommentsCreate(ctx)
			if err != nil {
				errorJSON(ctx, status, err)
				return
			}
			ctx.JSON(status, gin.H{"data": comment})
		})
	return g
}
