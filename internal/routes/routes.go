package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"holdings-imports-backend/internal/config"
	handler "holdings-imports-backend/internal/handlers"
	"holdings-imports-backend/internal/repository"
	"holdings-imports-backend/internal/services/auth"
	"holdings-imports-backend/internal/services/imports"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.AppConfig) {
	importRepo := repository.NewImportRepository(db, cfg.ReportDateFallback)
	importService := imports.NewImportService(importRepo, cfg.RatingsCacheTTL)
	authService := auth.NewAuthService(cfg.AuthEmail, cfg.AuthPassword)

	importsHandler := handler.NewImportsHandler(importService)
	authHandler := handler.NewAuthHandler(authService)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	perLogin := time.Minute
	if cfg.LoginRatePerMinute > 0 {
		perLogin = time.Minute / time.Duration(cfg.LoginRatePerMinute)
	}
	burst := max(cfg.LoginRatePerMinute, 1)
	loginLimiter := rate.NewLimiter(rate.Every(perLogin), burst)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", handler.RateLimit(loginLimiter), authHandler.Login)

	protected := api.Group("", handler.RequireAuth())
	protected.GET("/imports", importsHandler.List)
	protected.GET("/list/imports", importsHandler.List) // legacy path
	protected.GET("/ratings", importsHandler.Ratings)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "path": c.Request.URL.Path})
	})
}
