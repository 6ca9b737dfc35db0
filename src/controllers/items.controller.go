package controllers

import (
	"campusmarket/src/common"
	"campusmarket/src/middlewares"
	"campusmarket/src/models"
	"campusmarket/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (c *Controller) ItemsList(ctx *gin.Context) (items []models.Item, status int, err error) {
	var query types.ItemQueryFilters
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	items, err = c.Items.ListItems(ctx.Request.Context(), common.ItemFilter{
		SellerID: query.Seller,
		Status:   types.ItemStatus(query.Status),
		Category: query.Category,
	})
	if err != nil {
		log.Printf("[items] Error listing items: %s\n", err.Error())
		return nil, StatusFor(err), err
	}
	return items, http.StatusOK, nil
}

func (c *Controller) ItemsCreate(ctx *gin.Context) (item *models.Item, status int, err error) {
	var body types.CreateItemRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	item, err = c.Items.CreateItem(ctx.Request.Context(), principal.ID, common.ItemFields{
		Title:       body.Title,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
	})
	if err != nil {
		return nil, StatusFor(err), err
	}
	return item, http.StatusCreated, nil
}

func (c *Controller) ItemsGet(ctx *gin.Context) (item *models.Item, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	item, err = c.Items.GetItem(ctx.Request.Context(), params.ID)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return item, http.StatusOK, nil
}

func (c *Controller) ItemsUpdate(ctx *gin.Context) (item *models.Item, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var body types.UpdateItemRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	item, err = c.Items.UpdateItem(ctx.Request.Context(), params.ID, principal.ID, common.ItemPatch{
		Title:       body.Title,
		Description: body.Description,
		Price:       body.Price,
		Category:    body.Category,
		ImageURL:    body.ImageURL,
	})
	if err != nil {
		return nil, StatusFor(err), err
	}
	return item, http.StatusOK, nil
}

func (c *Controller) ItemsDelete(ctx *gin.Context) (status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	if err := c.Items.DeleteItem(ctx.Request.Context(), params.ID, principal.ID); err != nil {
		return StatusFor(err), err
	}
	return http.StatusNoContent, nil
}

// ItemsReserve creates a pending booking for the caller.
func (c *Controller) ItemsReserve(ctx *gin.Context) (out *common.Outcome, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	out, err = c.Bookings.Apply(ctx.Request.Context(), common.Reserve{ItemID: params.ID, BuyerID: principal.ID})
	if err != nil {
		return nil, StatusFor(err), err
	}
	return out, http.StatusCreated, nil
}

// ItemsMarkSold is the seller's direct sale of an item nobody has reserved.
func (c *Controller) ItemsMarkSold(ctx *gin.Context) (out *common.Outcome, status int, err error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	out, err = c.Bookings.Apply(ctx.Request.Context(), common.DirectSell{ItemID: params.ID, SellerID: principal.ID})
	if err != nil {
		return nil, StatusFor(err), err
	}
	return out, http.StatusOK, nil
}
