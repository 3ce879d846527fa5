package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storyverse/internal/auth"
)

const userIDKey = "userID"

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.bearerUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("authentication required"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through.
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := h.bearerUser(c); ok {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

func (h *Handler) bearerUser(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	userID, err := auth.ParseToken(strings.TrimSpace(token), h.jwtSecret)
	if err != nil {
		return "", false
	}
	return userID, true
}

func callerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requireSelf rejects requests acting on another user's account.
func requireSelf(c *gin.Context, userID string) bool {
	if userID != callerID(c) {
		c.JSON(http.StatusForbidden, errorBody("you can only act on your own account"))
		return false
	}
	return true
}
