package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"campusmarket/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// GetOrCreateConversation handles POST /api/v1/messages/conversation.
func (h *Handler) GetOrCreateConversation(c *gin.Context) {
	var req struct {
		RecipientID string `json:"recipientId"`
		ListingID   string `json:"listingId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.InvalidRequest, "Invalid request body"))
		return
	}

	user := currentUser(c)
	conversation, err := h.Messaging.GetOrCreateConversation(c.Request.Context(), user.ID, req.RecipientID, req.ListingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": conversation})
}

// GetConversations handles GET /api/v1/messages/conversations.
func (h *Handler) GetConversations(c *gin.Context) {
	user := currentUser(c)
	conversations, err := h.Messaging.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": conversations})
}

// GetMessages handles GET /api/v1/messages/:conversationId. Loading the
// thread marks the requester's unread messages as read.
func (h *Handler) GetMessages(c *gin.Context) {
	user := currentUser(c)
	messages, err := h.Messaging.ListMessages(c.Request.Context(), c.Param("conversationId"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// SendMessage handles POST /api/v1/messages/:conversationId. The durable
// write is the source of truth; the realtime relay and the notification are
// both fire-and-forget mirrors.
func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.InvalidRequest, "Invalid request body"))
		return
	}

	user := currentUser(c)
	sent, err := h.Messaging.SendMessage(c.Request.Context(), c.Param("conversationId"), user.ID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	if payload, err := json.Marshal(sent); err == nil {
		h.Hub.RelayMessage(sent.ConversationID, user.ID, payload)
	} else {
		log.Printf("ERROR: encode relay payload for message %s: %v", sent.ID, err)
	}

	go h.Notify.Notify(context.Background(), sent.RecipientID, "message",
		user.Name+" sent you a message", "/chat/"+sent.ConversationID)

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": sent})
}

// GetUnreadCount handles GET /api/v1/messages/unread/count.
func (h *Handler) GetUnreadCount(c *gin.Context) {
	user := currentUser(c)
	count, err := h.Messaging.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}
