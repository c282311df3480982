package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/auth"
	"github.com/lalith-99/lingomatch/internal/models"
)

// Context keys for the authenticated identity. Handlers read them through
// the getters below, never with c.Get directly.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyIdentity = "identity"
)

// AuthMiddleware validates the JWT and stores the caller's identity.
//
// The token comes from "Authorization: Bearer <token>" or, when that header
// is absent, from the ?token= query parameter. Browsers cannot set headers
// on a WebSocket upgrade, so the feed routes depend on the query form.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "missing or malformed authorization")
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyIdentity, claims.Identity())
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token := c.Query("token")
		return token, token != ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  apperr.CodeUnauthenticated,
	})
}

// GetUserID returns "" when the request did not pass AuthMiddleware.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func GetIdentity(c *gin.Context) models.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return models.Identity{}
	}
	id, ok := val.(models.Identity)
	if !ok {
		return models.Identity{}
	}
	return id
}
