package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/service"
)

// HandleCreateCampaign handles POST /v1/campaigns
func HandleCreateCampaign(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateCampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		campaign, err := campaigns.CreateCampaign(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	}
}

// HandleListCampaigns handles GET /v1/campaigns?status=
func HandleListCampaigns(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.CampaignStatus(c.Query("status"))
		if status != "" && !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		list, err := campaigns.ListCampaigns(c.Request.Context(), status)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"campaigns": list,
			"count":     len(list),
		})
	}
}

// HandleGetCampaign handles GET /v1/campaigns/:id
func HandleGetCampaign(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaign, err := campaigns.GetCampaign(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// HandleUpdateCampaign handles PATCH /v1/campaigns/:id
func HandleUpdateCampaign(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.UpdateCampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		campaign, err := campaigns.UpdateCampaign(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// HandleDeleteCampaign handles DELETE /v1/campaigns/:id
func HandleDeleteCampaign(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := campaigns.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleExecuteCampaign handles POST /v1/campaigns/:id/execute
func HandleExecuteCampaign(campaigns *service.CampaignService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		campaign, err := campaigns.ExecuteCampaign(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}
