package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const roleKey = "userRole"

// RequireRoles only lets through requests whose token role is one of
// allowedRoles. It expects Auth to run first.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetString(roleKey)))
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "no role in token",
				"code":       "UNAUTHORIZED",
				"request_id": GetRequestID(c),
			})
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "role " + role + " is not allowed",
				"code":       "FORBIDDEN",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
