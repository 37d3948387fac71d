package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/queue"
	"github.com/jafarshop/dropsim/internal/service"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// retryDispatchDelay is how long a partially dispatched order waits before its failed groups are retried
const retryDispatchDelay = time.Minute

// RetryScheduler queues a later retry of failed supplier groups
type RetryScheduler interface {
	EnqueueRetryDispatch(ctx context.Context, orderID string, delay time.Duration) error
}

// Consumer handles background tasks
type Consumer struct {
	services *service.Services
	delivery service.Notifier
	retries  RetryScheduler
	logger   *zap.Logger
}

// NewConsumer creates a consumer. delivery sends cart reminders; retries may be nil.
func NewConsumer(services *service.Services, delivery service.Notifier, retries RetryScheduler, logger *zap.Logger) *Consumer {
	return &Consumer{
		services: services,
		delivery: delivery,
		retries:  retries,
		logger:   logger,
	}
}

// Register installs the task handlers
func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskProcessOrder, c.handleProcessOrder)
	mux.HandleFunc(queue.TaskRetryDispatch, c.handleRetryDispatch)
	mux.HandleFunc(queue.TaskRefreshFulfillment, c.handleRefreshFulfillment)
	mux.HandleFunc(queue.TaskCartSweep, c.handleCartSweep)
	mux.HandleFunc(queue.TaskCartReminder, c.handleCartReminder)
}

func decode(task *asynq.Task, dest interface{}) error {
	if len(task.Payload()) == 0 {
		return nil
	}
	if err := json.Unmarshal(task.Payload(), dest); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (c *Consumer) handleProcessOrder(ctx context.Context, task *asynq.Task) error {
	var payload queue.OrderPayload
	if err := decode(task, &payload); err != nil {
		c.logger.Warn("Invalid process order payload", zap.Error(err))
		return err
	}
	if payload.OrderID == "" {
		return nil
	}

	_, err := c.services.Orders.ProcessOrder(ctx, payload.OrderID)
	switch {
	case err == nil:
		return nil
	case errors.IsNotFound(err), errors.IsInvalidState(err):
		c.logger.Debug("Skipping order processing",
			zap.String("order_id", payload.OrderID),
			zap.Error(err),
		)
		return nil
	}

	// with nothing placed the order is back to pending and the task itself is retried
	if partial, ok := errors.AsPartialDispatch(err); ok && len(partial.Succeeded) > 0 {
		c.scheduleRetry(ctx, payload.OrderID, partial)
		return nil
	}
	if errors.IsRetryable(err) {
		// the claim was released so running the task again redoes the dispatch
		return err
	}
	c.logger.Warn("Order processing failed",
		zap.String("order_id", payload.OrderID),
		zap.Error(err),
	)
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

func (c *Consumer) scheduleRetry(ctx context.Context, orderID string, partial *errors.ErrPartialDispatch) {
	retryable := false
	for _, f := range partial.Failed {
		retryable = retryable || f.Retryable
	}
	if !retryable || c.retries == nil {
		c.logger.Warn("Order partially dispatched, manual retry required",
			zap.String("order_id", orderID),
			zap.Strings("succeeded", partial.Succeeded),
		)
		return
	}
	if err := c.retries.EnqueueRetryDispatch(ctx, orderID, retryDispatchDelay); err != nil {
		c.logger.Warn("Failed to schedule dispatch retry",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (c *Consumer) handleRetryDispatch(ctx context.Context, task *asynq.Task) error {
	var payload queue.OrderPayload
	if err := decode(task, &payload); err != nil {
		return err
	}
	if payload.OrderID == "" {
		return nil
	}

	_, err := c.services.Orders.RetryFailedGroups(ctx, payload.OrderID)
	switch {
	case err == nil:
		return nil
	case errors.IsNotFound(err), errors.IsInvalidState(err):
		return nil
	case errors.IsRetryable(err):
		// failed groups are recorded again, so the next attempt picks them up
		return err
	}
	if partial, ok := errors.AsPartialDispatch(err); ok {
		for _, f := range partial.Failed {
			if f.Retryable {
				return err
			}
		}
	}
	c.logger.Warn("Dispatch retry failed",
		zap.String("order_id", payload.OrderID),
		zap.Error(err),
	)
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

func (c *Consumer) handleRefreshFulfillment(ctx context.Context, task *asynq.Task) error {
	var payload queue.RefreshFulfillmentPayload
	if err := decode(task, &payload); err != nil {
		return err
	}

	if payload.OrderID == "" {
		n, err := c.services.Orders.RefreshOpenOrders(ctx)
		c.logger.Info("Fulfillment refresh finished", zap.Int("orders", n))
		return err
	}
	_, err := c.services.Orders.UpdateFulfillmentStatus(ctx, payload.OrderID)
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}

func (c *Consumer) handleCartSweep(ctx context.Context, _ *asynq.Task) error {
	sent, err := c.services.Carts.ProcessAbandonedCarts(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("Abandoned cart sweep finished", zap.Int("reminders", sent))
	return nil
}

func (c *Consumer) handleCartReminder(ctx context.Context, task *asynq.Task) error {
	var payload queue.CartReminderPayload
	if err := decode(task, &payload); err != nil {
		return err
	}
	if payload.CartID == "" || c.delivery == nil {
		return nil
	}

	cart, err := c.services.Carts.GetCart(ctx, payload.CartID)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if cart.IsRecovered {
		c.logger.Debug("Cart recovered before reminder delivery", zap.String("cart_id", cart.ID))
		return nil
	}
	return c.delivery.NotifyCartReminder(ctx, cart)
}
