package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// HeaderIdempotencyKey is the request header carrying the client's key
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxIdempotencyKey     = "idempotency_key"
	ctxRequestHash        = "idempotency_request_hash"
	ctxExistingOrderID    = "idempotency_existing_order_id"
	ctxCompletedOrderID   = "idempotency_completed_order_id"
	maxIdempotencyKeySize = 255
)

// IdempotencyMiddleware makes POST requests carrying an Idempotency-Key safe to repeat.
// The first request reserves the key; a replay with the same body gets the stored order,
// a replay with a different body is rejected, and a replay while the first is still
// running gets 409.
func IdempotencyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeySize {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency key too long"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := hashRequest(body)

		ctx := c.Request.Context()
		err = repos.IdempotencyKeys.Create(ctx, &domain.IdempotencyKey{
			Token:       key,
			RequestHash: hash,
			CreatedAt:   time.Now().UTC(),
		})
		if errors.IsConflict(err) {
			existing, getErr := repos.IdempotencyKeys.Get(ctx, key)
			if getErr != nil {
				logger.Error("Failed to load idempotency key", zap.Error(getErr))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			switch {
			case existing.RequestHash != hash:
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
					"error": "idempotency key reused with a different request body",
				})
			case existing.OrderID == "":
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
			default:
				c.Set(ctxIdempotencyKey, key)
				c.Set(ctxRequestHash, hash)
				c.Set(ctxExistingOrderID, existing.OrderID)
				c.Next()
			}
			return
		}
		if err != nil {
			logger.Error("Failed to reserve idempotency key", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxRequestHash, hash)
		c.Next()

		// a request that produced no order gives the key back so the client can retry
		orderID := c.GetString(ctxCompletedOrderID)
		if orderID == "" {
			if err := repos.IdempotencyKeys.Delete(ctx, key); err != nil && !errors.IsNotFound(err) {
				logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}
		if _, err := repos.IdempotencyKeys.Update(ctx, key, func(k *domain.IdempotencyKey) error {
			k.OrderID = orderID
			return nil
		}); err != nil {
			logger.Warn("Failed to store idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
}

// GetIdempotencyInfo returns the key, the request hash and, for a replay, the order the key already produced
func GetIdempotencyInfo(c *gin.Context) (key, requestHash, existingOrderID string, isExisting bool) {
	key = c.GetString(ctxIdempotencyKey)
	requestHash = c.GetString(ctxRequestHash)
	existingOrderID = c.GetString(ctxExistingOrderID)
	return key, requestHash, existingOrderID, existingOrderID != ""
}

// CompleteIdempotency binds the reserved key to the order the request created
func CompleteIdempotency(c *gin.Context, orderID string) {
	if c.GetString(ctxIdempotencyKey) == "" {
		return
	}
	c.Set(ctxCompletedOrderID, orderID)
}

func hashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
