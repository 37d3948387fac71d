package queue

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/domain"
)

const (
	// DefaultQueue is the only queue the worker consumes
	DefaultQueue = "default"

	defaultConcurrency = 10
	processMaxRetry    = 5
	// dedupeWindow keeps a second enqueue of the same order from creating a duplicate task
	dedupeWindow = 10 * time.Minute
)

// ErrDisabled is returned by enqueue calls when the queue is switched off
var ErrDisabled = stderrors.New("queue disabled")

// Client enqueues background tasks
type Client struct {
	client  *asynq.Client
	enabled bool
	queue   string
	logger  *zap.Logger
}

// NewClient creates a queue client. A disabled config yields a client whose enqueue calls fail with ErrDisabled.
func NewClient(cfg config.QueueConfig, logger *zap.Logger) *Client {
	if !cfg.Enabled {
		return &Client{queue: DefaultQueue, logger: logger}
	}
	return &Client{
		client:  asynq.NewClient(RedisOpt(cfg)),
		enabled: true,
		queue:   DefaultQueue,
		logger:  logger,
	}
}

// Enabled reports whether tasks reach Redis
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close releases the Redis connection
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	options := append([]asynq.Option{asynq.Queue(c.queue)}, opts...)
	info, err := c.client.EnqueueContext(ctx, task, options...)
	if stderrors.Is(err, asynq.ErrTaskIDConflict) || stderrors.Is(err, asynq.ErrDuplicateTask) {
		c.logger.Debug("Task already queued", zap.String("type", task.Type()))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.Debug("Task enqueued",
		zap.String("type", task.Type()),
		zap.String("task_id", info.ID),
	)
	return nil
}

// EnqueueProcessOrder queues dispatch of an order. Queuing the same order twice is a no-op.
func (c *Client) EnqueueProcessOrder(ctx context.Context, orderID string) error {
	task, err := NewProcessOrderTask(orderID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task,
		asynq.TaskID("process:"+orderID),
		asynq.MaxRetry(processMaxRetry),
		asynq.Retention(dedupeWindow),
	)
}

// EnqueueRetryDispatch queues a retry of the failed supplier groups after delay
func (c *Client) EnqueueRetryDispatch(ctx context.Context, orderID string, delay time.Duration) error {
	task, err := NewRetryDispatchTask(orderID)
	if err != nil {
		return err
	}
	if delay < 0 {
		delay = 0
	}
	return c.enqueue(ctx, task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(processMaxRetry),
		asynq.Unique(delay+time.Minute),
	)
}

// EnqueueRefreshFulfillment queues a status refresh for one order
func (c *Client) EnqueueRefreshFulfillment(ctx context.Context, orderID string) error {
	task, err := NewRefreshFulfillmentTask(orderID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// NotifyCartReminder hands reminder delivery to the worker
func (c *Client) NotifyCartReminder(ctx context.Context, cart *domain.AbandonedCart) error {
	task, err := NewCartReminderTask(CartReminderPayload{
		CartID:        cart.ID,
		CustomerEmail: cart.CustomerEmail,
		ReminderCount: cart.ReminderCount,
	})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.TaskID("reminder:"+cart.ID+":"+strconv.Itoa(cart.ReminderCount)))
}

// BuildServerConfig returns the Redis connection and server settings for the worker
func BuildServerConfig(cfg config.QueueConfig, logger *zap.Logger) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := defaultConcurrency
	if cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	serverCfg := asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DefaultQueue: 1},
	}
	if logger != nil {
		serverCfg.Logger = logger.Sugar()
	}
	return RedisOpt(cfg), serverCfg
}

// RedisOpt builds the asynq Redis connection options
func RedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
