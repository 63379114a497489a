// Package handler wires the REST and websocket surfaces to the services.
package handler

import (
	"context"

	"campusmarket/backend/internal/chathub"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/notify"

	"github.com/gin-gonic/gin"
)

// UserStore resolves the bearer credential's subject to a full user row.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Handler struct {
	Config    config.Config
	Users     UserStore
	Messaging *messaging.Service
	Notify    *notify.Service
	Hub       *chathub.ManagerService
}

func NewHandler(cfg config.Config, users UserStore, msg *messaging.Service, ntf *notify.Service, hub *chathub.ManagerService) *Handler {
	return &Handler{
		Config:    cfg,
		Users:     users,
		Messaging: msg,
		Notify:    ntf,
		Hub:       hub,
	}
}

// RegisterRoutes attaches every endpoint to the router. The health check and
// the websocket upgrade sit outside the authenticated group; the websocket
// handshake carries its own credential.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/health", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api/v1", h.Authenticate)

	messages := api.Group("/messages")
	messages.POST("/conversation", h.GetOrCreateConversation)
	messages.GET("/conversations", h.GetConversations)
	messages.GET("/unread/count", h.GetUnreadCount)
	messages.GET("/:conversationId", h.GetMessages)
	messages.POST("/:conversationId", h.SendMessage)

	notifications := api.Group("/notifications")
	notifications.GET("", h.GetNotifications)
	notifications.GET("/unread", h.GetUnreadNotificationCount)
	notifications.PUT("/read-all", h.MarkAllNotificationsRead)
	notifications.PUT("/:id/read", h.MarkNotificationRead)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"success": true, "message": "CampusMarket API is running"})
}
