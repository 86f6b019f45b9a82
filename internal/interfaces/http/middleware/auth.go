package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
	"github.com/AdGenMCM/Updated-AdGen/internal/domain/services"
)

const (
	ContextAccountID = "account_id"
	ContextEmail     = "account_email"
	ContextRole      = "account_role"
)

// JWTAuthMiddleware rejects requests without a valid bearer token and
// stashes the verified claims in the gin context. No account-scoped
// work happens before this point.
func JWTAuthMiddleware(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization required",
				"message": "Please provide a valid bearer token in the authorization header",
			})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid authorization header format",
				"message": "Use: Authorization: Bearer <your-jwt-token>",
			})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid or expired token",
				"message": "Please login again to get a new token",
			})
			c.Abort()
			return
		}

		c.Set(ContextAccountID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after JWTAuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Access denied",
				"message": "Admin access required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated account id from the gin context.
func AccountID(c *gin.Context) int64 {
	id, _ := c.Get(ContextAccountID)
	accountID, _ := id.(int64)
	return accountID
}

// Role returns the authenticated role from the gin context.
func Role(c *gin.Context) models.UserRole {
	v, _ := c.Get(ContextRole)
	role, _ := v.(models.UserRole)
	return role
}
