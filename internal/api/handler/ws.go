package handler

import (
	"net/http"

	"campusmarket/backend/internal/chathub"
	"campusmarket/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer on the REST side; the websocket
	// handshake is authenticated by the bearer token instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket handles GET /ws: validates the credential, upgrades the
// connection, and hands it to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
		return
	}

	userID, err := parseToken(h.Config.JWTSecret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}

	client := &chathub.WebSocketClient{
		UserID: userID,
		Conn:   conn,
		Hub:    h.Hub,
		Send:   make(chan models.Event, chathub.SendBufferSize),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
