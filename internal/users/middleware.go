package users

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireAuth returns middleware that validates the Bearer token and
// stores the caller's identity on the request context.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := s.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set("authUserID", claims.UserID)
		c.Set("authEmail", claims.Email)
		c.Set("authRole", claims.Role)
		c.Set("authName", claims.Name)
		c.Next()
	}
}

// RequireRole returns middleware that restricts a route to the given
// roles. Admin passes everything. Apply after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString("authRole")
		if role != RoleAdmin && !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Insufficient role for this operation",
			})
			return
		}
		c.Next()
	}
}
