package middleware

import (
	"errors"
	"net/http"
	"strings"

	"consultline/models"
	"consultline/services/auth"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// BearerToken extracts the credential from the Authorization header, or from
// the token query parameter for websocket upgrades.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware resolves the caller's identity once per request.
func AuthMiddleware(gw auth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		identity, err := gw.Verify(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				utils.RespondError(c, utils.Upstream(err, "failed to verify credential"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(identityKey, *identity)
		c.Set(tokenKey, tokenString)
		if l, ok := c.Get(loggerKey); ok {
			if logger, ok := l.(*zap.Logger); ok {
				c.Set(loggerKey, logger.With(zap.String("userID", identity.UserID)))
			}
		}
		c.Next()
	}
}

// GetIdentity returns the identity set by AuthMiddleware.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// GetToken returns the raw bearer token of the request.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
