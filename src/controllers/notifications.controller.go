package controllers

import (
	"campusmarket/src/common"
	"campusmarket/src/middlewares"
	"campusmarket/src/models"
	"campusmarket/src/types"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (c *Controller) NotificationsList(ctx *gin.Context) (notifications []models.Notification, status int, err error) {
	var query types.NotificationQueryFilters
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	notifications, err = c.Notifications.List(ctx.Request.Context(), principal.ID, query.Unread)
	if err != nil {
		log.Printf("[notifications] Error listing for user [%d]: %s\n", principal.ID, err.Error())
		return nil, StatusFor(err), err
	}
	return notifications, http.StatusOK, nil
}

func (c *Controller) NotificationsUnreadCount(ctx *gin.Context) (count int64, status int, err error) {
	principal := middlewares.Principal(ctx)
	count, err = c.Notifications.UnreadCount(ctx.Request.Context(), principal.ID)
	if err != nil {
		return 0, StatusFor(err), err
	}
	return count, http.StatusOK, nil
}

func (c *Controller) NotificationsMarkRead(ctx *gin.Context) (notification *models.Notification, status int, err error) {
	var params types.NotificationRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		return nil, http.StatusBadRequest, err
	}
	id, err := uuid.Parse(params.ID)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	notification, err = c.Notifications.MarkRead(ctx.Request.Context(), id, principal.ID)
	if err != nil {
		return nil, StatusFor(err), err
	}
	return notification, http.StatusOK, nil
}

func (c *Controller) NotificationsMarkAllRead(ctx *gin.Context) (updated int64, status int, err error) {
	principal := middlewares.Principal(ctx)
	updated, err = c.Notifications.MarkAllRead(ctx.Request.Context(), principal.ID)
	if err != nil {
		return 0, StatusFor(err), err
	}
	return updated, http.StatusOK, nil
}

// RealtimeAuthorize signs a subscription to the caller's own notification
// channel. Any other channel is refused.
func (c *Controller) RealtimeAuthorize(ctx *gin.Context) (response []byte, status int, err error) {
	if c.Realtime == nil {
		return nil, http.StatusNotFound, fmt.Errorf("%w: realtime is disabled", common.ErrNotFound)
	}
	raw, err := ctx.GetRawData()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	principal := middlewares.Principal(ctx)
	if form.Get("socket_id") == "" || form.Get("channel_name") != common.UserChannel(principal.ID) {
		return nil, http.StatusForbidden, fmt.Errorf("%w: cannot subscribe to %q", common.ErrForbidden, form.Get("channel_name"))
	}
	response, err = c.Realtime.AuthorizePrivateChannel(raw)
	if err != nil {
		log.Printf("[notifications] Realtime authorization failed for user [%d]: %s\n", principal.ID, err.Error())
		return nil, http.StatusForbidden, err
	}
	return response, http.StatusOK, nil
}
