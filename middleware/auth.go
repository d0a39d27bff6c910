package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/config"
)

const UserIDKey = "user_id"

// SessionKey is the cache key marking a live session for token.
func SessionKey(token string) string { return "session:" + token }

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}

// Auth validates the Bearer JWT. With RequireSession set the token must also
// have a live session entry in the cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr, ok := BearerToken(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		uid, status, msg := Authenticate(ctx.Request.Context(), sec, c, tokenStr)
		if status != 0 {
			ctx.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		ctx.Set(UserIDKey, uid)
		ctx.Next()
	}
}

// Authenticate checks tokenStr and returns its user id. On failure status
// is the HTTP status to answer with.
func Authenticate(ctx context.Context, sec config.SecurityConfig, c cache.Cache, tokenStr string) (string, int, string) {
	claims, err := ParseToken(tokenStr, sec.JWTSecret, sec.JWTIssuer)
	if err != nil {
		return "", http.StatusUnauthorized, "invalid token"
	}
	if sec.RequireSession {
		cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			return "", http.StatusUnauthorized, "session expired"
		}
	}
	return claims.UserID(), 0, ""
}

// GetUserID returns the authenticated user id, or "" outside Auth.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// AdminAuth checks the X-Admin-Key header. An empty adminKey disables
// every admin route with 503.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
