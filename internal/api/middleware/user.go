package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the authenticated user's ID, injected by the
	// authentication gateway in front of this service
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the user ID in the context
	UserIDKey = "user_id"
)

// UserAuth rejects requests without a valid user identity header
func UserAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid user identity",
				},
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the user ID set by UserAuth
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if id, exists := c.Get(UserIDKey); exists {
		if userID, ok := id.(uuid.UUID); ok {
			return userID, true
		}
	}
	return uuid.Nil, false
}
