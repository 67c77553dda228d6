package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nclexkeys/backend/internal/service"
	"nclexkeys/backend/pkg/response"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	items, err := h.notificationService.List(c.Request.Context(), userID, c.Query("unread") == "true")
	if err != nil {
		response.InternalError(c, "failed to list notifications")
		return
	}

	response.Success(c, items)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	n, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "failed to count notifications")
		return
	}

	response.Success(c, gin.H{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.InternalError(c, "failed to update notification")
		return
	}

	response.Success(c, nil)
}
