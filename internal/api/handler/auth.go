package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/store"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const userContextKey = "currentUser"

// GenerateToken mints an HS256 bearer token for the given user. The auth
// service issues these in production; this is also what the tests use.
func GenerateToken(secret, userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(72 * time.Hour).Unix(),
		"iss": "campusmarket-api",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", apperr.New(apperr.Unauthenticated, "Not authorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.New(apperr.Unauthenticated, "Not authorized")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", apperr.New(apperr.Unauthenticated, "Not authorized")
	}
	return sub, nil
}

// bearerToken pulls the credential from the Authorization header, falling
// back to the token query parameter for websocket handshakes, where browsers
// cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Authenticate verifies the bearer token and attaches the resolved user to
// the request context.
func (h *Handler) Authenticate(c *gin.Context) {
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

	user, err := h.Users.GetUserByID(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User no longer exists"})
		return
	}
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Internal, "Server error", err))
		c.Abort()
		return
	}

	c.Set(userContextKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userContextKey).(*models.User)
}
