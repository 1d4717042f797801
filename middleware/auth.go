package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/common/auth"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"
	AdminRole      = "admin"
	accessTokenTyp = "access"
)

// AuthMiddleware resolves the caller's identity. Gateway headers win, then
// the gateway cookies, then a bearer token checked by validator (which may
// be nil when no JWT secret is configured). Once a JWT secret is set the
// headers and cookies are ignored unless trustGateway is true, so the id
// and role come from the token alone.
func AuthMiddleware(validator *auth.TokenValidator, trustGateway bool) gin.HandlerFunc {
	gatewayIdentity := trustGateway || !validator.Enabled()

	return func(c *gin.Context) {
		var userID, role string

		if gatewayIdentity {
			userID = c.GetHeader("X-User-ID")
			role = c.GetHeader("X-User-Role")

			// Cookie fallback (only if behind api-gateway, never publicly exposed)
			if userID == "" {
				if v, err := c.Cookie("user_id"); err == nil {
					userID = v
				}
			}
			if role == "" {
				if v, err := c.Cookie("user_role"); err == nil {
					role = v
				}
			}
		}

		if userID == "" && validator.Enabled() {
			if token := bearerToken(c); token != "" {
				claims, err := validator.ParseAndValidateToken(token, accessTokenTyp)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
					return
				}
				userID, _ = claims["sub"].(string)
				role, _ = claims["role"].(string)
			}
		}

		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		parsed, err := uuid.Parse(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user ID format"})
			return
		}

		c.Set(UserContextKey, parsed)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetRole(c)
		if err != nil || role != AdminRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// GetUserID returns the user id set by AuthMiddleware.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(uuid.UUID); ok {
			return id, nil
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}

func GetRole(c *gin.Context) (string, error) {
	if val, ok := c.Get(RoleContextKey); ok {
		if role, ok := val.(string); ok {
			return role, nil
		}
	}
	return "", errors.New("role not found in context")
}
