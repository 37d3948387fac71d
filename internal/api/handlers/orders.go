package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/api/middleware"
	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/service"
)

// CancelOrderRequest represents cancel order request
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// HandleCreateOrder handles POST /v1/orders
func HandleCreateOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if this is an idempotent replay
		_, _, existingOrderID, isExisting := middleware.GetIdempotencyInfo(c)
		if isExisting {
			order, err := orders.GetOrder(c.Request.Context(), existingOrderID)
			if err != nil {
				logger.Error("Failed to get existing order", zap.Error(err))
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, order)
			return
		}

		var req service.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		order, err := orders.CreateOrder(c.Request.Context(), req)
		if order == nil {
			respondError(c, logger, err)
			return
		}
		middleware.CompleteIdempotency(c, order.ID)

		if err == nil {
			c.JSON(http.StatusCreated, order)
			return
		}

		// the order exists but automatic processing did not finish
		if _, ok := dispatchedPartially(err); ok {
			respondDispatch(c, logger, order, err)
			return
		}
		logger.Warn("Order created but not dispatched",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusAccepted, gin.H{
			"order": order,
			"error": err.Error(),
		})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleListOrders handles GET /v1/orders
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.OrderStatus(c.Query("status"))
		if status != "" && !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		list, err := orders.ListOrders(c.Request.Context(), status)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": list,
			"count":  len(list),
		})
	}
}

// HandleProcessOrder handles POST /v1/orders/:id/process
func HandleProcessOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.ProcessOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondDispatch(c, logger, order, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleRetryOrder handles POST /v1/orders/:id/retry
func HandleRetryOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.RetryFailedGroups(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondDispatch(c, logger, order, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CancelOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondBindError(c, err)
				return
			}
		}

		order, err := orders.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleUpdateFulfillment handles POST /v1/orders/:id/fulfillment
func HandleUpdateFulfillment(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.UpdateFulfillmentStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleOrderProfit handles GET /v1/orders/:id/profit
func HandleOrderProfit(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := orders.Profit(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandleQuoteShipping handles POST /v1/shipping/quote
func HandleQuoteShipping(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.ShippingQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		cost, err := orders.QuoteShipping(c.Request.Context(), req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"supplier_id": req.SupplierID,
			"country":     req.Country,
			"cost":        cost,
		})
	}
}
