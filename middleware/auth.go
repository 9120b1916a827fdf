package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/cache"
	"github.com/platemate/server/config"
	"github.com/platemate/server/model"
	"gorm.io/gorm"
)

const UserKey = "current_user"

// AdminGroup is the role tag that unlocks the admin surface.
const AdminGroup = "admin"

// Auth validates the Bearer JWT, checks the session cache, and resolves the
// full user row into the request context.
func Auth(sec config.SecurityConfig, c cache.Cache, gdb *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// The session entry stores the handle the token was minted for; a
		// missing entry or a mismatch both mean the session is dead.
		sessionKey := "session:" + tokenStr
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		handle, err := c.Get(cacheCtx, sessionKey)
		if err != nil || handle != claims.Handle {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		// Sliding expiry: activity keeps the session alive for a full TTL.
		_ = c.Expire(cacheCtx, sessionKey, sec.JWTTTLH)

		var user model.User
		if err := gdb.First(&user, claims.UserID).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		ctx.Set(UserKey, user)
		ctx.Next()
	}
}

// RequireAdmin gates a route group on the admin role tag. Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := CurrentUser(ctx)
		if !ok || !user.InGroup(AdminGroup) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		ctx.Next()
	}
}

// CurrentUser retrieves the authenticated user from the Gin context.
func CurrentUser(c *gin.Context) (model.User, bool) {
	if v, exists := c.Get(UserKey); exists {
		if u, ok := v.(model.User); ok {
			return u, true
		}
	}
	return model.User{}, false
}
