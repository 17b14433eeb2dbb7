package handler

import (
	"net/http"
	"time"

	"holdings-imports-backend/internal/logger"
	"holdings-imports-backend/internal/metrics"
	"holdings-imports-backend/internal/services/imports"

	"github.com/gin-gonic/gin"
)

type ImportsHandler struct {
	service *imports.ImportService
}

func NewImportsHandler(s *imports.ImportService) *ImportsHandler {
	return &ImportsHandler{service: s}
}

// List serves GET /api/imports (and the legacy /api/list/imports).
func (h *ImportsHandler) List(c *gin.Context) {
	start := time.Now()

	q, dropped := imports.ParseQuery(c.Request.URL.Query())
	for _, v := range dropped {
		metrics.DroppedFilter(v.Param)
		logger.L.Debug("ignoring filter value", "param", v.Param, "value", v.Value, "reason", v.Reason)
	}

	page, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		metrics.ObserveQuery(time.Since(start), metrics.OutcomeError)
		logger.L.Error("imports query failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "error": err.Error()})
		return
	}

	metrics.ObserveQuery(time.Since(start), metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, page)
}

// Ratings serves GET /api/ratings, the options for the rating filter.
func (h *ImportsHandler) Ratings(c *gin.Context) {
	ratings, err := h.service.Ratings(c.Request.Context())
	if err != nil {
		logger.L.Error("ratings lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}
