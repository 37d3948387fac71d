package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/service"
)

// HandleValidateDiscount handles POST /v1/discounts/validate.
// A code that does not apply is still a 200; the result says why.
func HandleValidateDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.DiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		result, err := discounts.Validate(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleApplyDiscount handles POST /v1/discounts/apply
func HandleApplyDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.DiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		result, err := discounts.Apply(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// HandleCreateDiscount handles POST /v1/discounts
func HandleCreateDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		dc, err := discounts.Create(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, dc)
	}
}

// HandleListDiscounts handles GET /v1/discounts
func HandleListDiscounts(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := discounts.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"discounts": list,
			"count":     len(list),
		})
	}
}

// HandleDeactivateDiscount handles POST /v1/discounts/:id/deactivate
func HandleDeactivateDiscount(discounts *service.DiscountService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		dc, err := discounts.Deactivate(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, dc)
	}
}
