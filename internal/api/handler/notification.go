package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotifications handles GET /api/v1/notifications.
func (h *Handler) GetNotifications(c *gin.Context) {
	user := currentUser(c)
	notifications, err := h.Notify.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications})
}

// GetUnreadNotificationCount handles GET /api/v1/notifications/unread.
func (h *Handler) GetUnreadNotificationCount(c *gin.Context) {
	user := currentUser(c)
	count, err := h.Notify.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

// MarkNotificationRead handles PUT /api/v1/notifications/:id/read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	user := currentUser(c)
	if err := h.Notify.MarkRead(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead handles PUT /api/v1/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	user := currentUser(c)
	if err := h.Notify.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All notifications marked as read"})
}
