package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const addressKey = "address"

// JWTMiddleware guards address-scoped routes and stores the authenticated
// address in the request context.
func JWTMiddleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		token := strings.TrimSpace(authz[7:])
		claims, err := svc.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(addressKey, claims.Address)
		c.Next()
	}
}

// CurrentAddress returns the authenticated address set by JWTMiddleware.
func CurrentAddress(c *gin.Context) string {
	return c.GetString(addressKey)
}
