package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// actorKey is the gin context key the authenticated user is stored under
const actorKey = "actor"

// AuthMiddleware resolves the bearer token on each request to a user record.
// Requests without a valid token are rejected with 401.
func AuthMiddleware(userRepo port.UserRepository, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		user, err := userRepo.GetByToken(c.Request.Context(), token)
		if err != nil {
			logger.Error("Failed to resolve token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "authentication failed",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// actorFrom returns the authenticated user set by AuthMiddleware
func actorFrom(c *gin.Context) *entity.User {
	value, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := value.(*entity.User)
	return user
}
