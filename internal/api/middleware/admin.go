package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AdminIDHeader carries the acting administrator's ID, injected by the
	// authentication gateway in front of this service
	AdminIDHeader = "X-Admin-ID"

	// AdminIDKey is the key used to store the admin ID in the context
	AdminIDKey = "admin_id"
)

// AdminAuth rejects requests without a valid admin identity header. Identity
// verification itself happens upstream; this service only requires the ID for
// authorization scoping and audit attribution.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, err := uuid.Parse(c.GetHeader(AdminIDHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid admin identity",
				},
			})
			return
		}

		c.Set(AdminIDKey, adminID)
		c.Next()
	}
}

// GetAdminID retrieves the admin ID set by AdminAuth
func GetAdminID(c *gin.Context) (uuid.UUID, bool) {
	if id, exists := c.Get(AdminIDKey); exists {
		if adminID, ok := id.(uuid.UUID); ok {
			return adminID, true
		}
	}
	return uuid.Nil, false
}
