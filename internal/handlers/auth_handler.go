package handler

import (
	"errors"
	"net/http"

	"holdings-imports-backend/internal/logger"
	"holdings-imports-backend/internal/metrics"
	"holdings-imports-backend/internal/services/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service *auth.AuthService
}

func NewAuthHandler(s *auth.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Login serves POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}

	token, err := h.service.Login(payload.Email, payload.Password)
	var (
		cfgErr  *auth.ConfigurationError
		authErr *auth.AuthError
	)
	switch {
	case err == nil:
		metrics.Login(metrics.LoginSuccess)
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "message": "Login successful"})
	case errors.Is(err, auth.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
	case errors.As(err, &cfgErr):
		metrics.Login(metrics.LoginMisconfigured)
		logger.L.Error("login unavailable", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server configuration error"})
	case errors.As(err, &authErr):
		metrics.Login(metrics.LoginRejected)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
	default:
		logger.L.Error("login error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
	}
}
