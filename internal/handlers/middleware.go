package handler

import (
	"net/http"
	"strings"

	"holdings-imports-backend/internal/logger"
	"holdings-imports-backend/internal/metrics"
	"holdings-imports-backend/internal/services/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RequireAuth rejects requests whose bearer token is not the session token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !auth.ValidToken(token) {
			logger.L.Debug("unauthorized request", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RateLimit answers 429 once limiter has no tokens left.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			metrics.Login(metrics.LoginThrottled)
			logger.L.Warn("rate limit exceeded",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"remoteAddr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests"})
			return
		}
		c.Next()
	}
}
