package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/service"
)

// HandleGetSettings handles GET /v1/settings
func HandleGetSettings(settings *service.SettingsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := settings.Get(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// HandleUpdateMarkup handles PUT /v1/settings/markup
func HandleUpdateMarkup(settings *service.SettingsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.MarkupSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		s, err := settings.UpdateMarkup(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// HandleUpdateAutomation handles PUT /v1/settings/automation
func HandleUpdateAutomation(settings *service.SettingsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.AutomationSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		s, err := settings.UpdateAutomation(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// HandleUpdateTax handles PUT /v1/settings/tax
func HandleUpdateTax(settings *service.SettingsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.TaxSettings
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		s, err := settings.UpdateTax(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}
