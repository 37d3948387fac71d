package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/service"
)

// RecoverCartRequest links a cart to the order that recovered it
type RecoverCartRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// HandleCreateCart handles POST /v1/carts
func HandleCreateCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		cart, err := carts.CreateCart(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, cart)
	}
}

// HandleGetCart handles GET /v1/carts/:id
func HandleGetCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.GetCart(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// HandleListCarts handles GET /v1/carts?customer_id=
func HandleListCarts(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.Query("customer_id")
		if customerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id is required"})
			return
		}

		list, err := carts.ListByCustomer(c.Request.Context(), customerID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"carts": list,
			"count": len(list),
		})
	}
}

// HandleRecoverCart handles POST /v1/carts/:id/recover
func HandleRecoverCart(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RecoverCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		cart, err := carts.MarkRecovered(c.Request.Context(), c.Param("id"), req.OrderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// HandleSendReminder handles POST /v1/carts/:id/remind
func HandleSendReminder(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.SendReminder(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// HandleSweepCarts handles POST /v1/carts/sweep
func HandleSweepCarts(carts *service.CartService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sent, err := carts.ProcessAbandonedCarts(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reminders_sent": sent})
	}
}
