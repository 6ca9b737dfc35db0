package controllers

import (
	"campusmarket/src/middlewares"
	"campusmarket/src/models"
	"campusmarket/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (c *Controller) CommentsList(ctx *gin.Context) (comments []models.Comment, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	comments, err = c.Comments.ListComments(ctx.Request.Context(), params.ID)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return comments, http.StatusOK, nil
}

func (c *Controller) CommentsCreate(ctx *gin.Context) (comment *models.Comment, status int, err error) {
	var body types.CreateCommentRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	comment, err = c.Comments.PostComment(ctx.Request.Context(), body.ItemID, principal.ID, body.Text, body.ParentID)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return comment, http.StatusCreated, nil
}
