package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// respondError writes the status and body for a service error
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if rejected, ok := errors.AsDiscountRejected(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "discount rejected",
			"code":   rejected.Code,
			"reason": rejected.Reason,
		})
		return
	}
	if partial, ok := errors.AsPartialDispatch(err); ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     err.Error(),
			"succeeded": partial.Succeeded,
			"failed":    partial.Failed,
		})
		return
	}

	switch {
	case errors.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"details": err.Error(),
		})
	case errors.IsUnsupportedDestination(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.IsInvalidState(err), errors.IsAlreadyCompleted(err), errors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.IsSupplierUnavailable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondBindError reports a request body that failed to bind
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   "validation failed",
		"details": err.Error(),
	})
}

// respondDispatch writes an order returned alongside a dispatch error. A partial
// dispatch still moved the order forward, so the client gets it back with 207.
func respondDispatch(c *gin.Context, logger *zap.Logger, order *domain.Order, err error) {
	if partial, ok := dispatchedPartially(err); ok && order != nil {
		c.JSON(http.StatusMultiStatus, gin.H{
			"order":     order,
			"error":     err.Error(),
			"succeeded": partial.Succeeded,
			"failed":    partial.Failed,
		})
		return
	}
	respondError(c, logger, err)
}

// dispatchedPartially reports a dispatch where at least one supplier group was placed
func dispatchedPartially(err error) (*errors.ErrPartialDispatch, bool) {
	partial, ok := errors.AsPartialDispatch(err)
	if !ok || len(partial.Succeeded) == 0 {
		return nil, false
	}
	return partial, true
}
