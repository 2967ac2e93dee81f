package middleware

import (
	"net/http"

	"account-service/internal/config"
	"account-service/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GuestReadOnlyMiddleware restricts the shared guest account to
// read-only access on the routes it wraps.
func GuestReadOnlyMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		username, exists := c.Get(ContextUsernameKey)
		if exists && username == cfg.GuestUser.Username {
			utils.ErrorResponse(c, http.StatusForbidden, "Guest account is limited to read-only access")
			c.Abort()
			return
		}

		c.Next()
	}
}
