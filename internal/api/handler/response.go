package handler

import (
	"log"
	"net/http"

	"campusmarket/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// respondError writes the structured error body. Internal causes are logged
// server-side and never leak to the client.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"success": false, "message": apperr.ClientMessage(err)})
}
