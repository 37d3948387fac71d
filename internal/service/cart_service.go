package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// reminderSchedule is the cart age at which reminder n+1 becomes due
var reminderSchedule = []time.Duration{
	1 * time.Hour,
	24 * time.Hour,
	72 * time.Hour,
}

// MaxCartReminders is how many reminders a cart can receive from the sweep
var MaxCartReminders = len(reminderSchedule)

// ReminderDue reports whether a cart with sent reminders and the given age needs another one
func ReminderDue(sent int, age time.Duration) bool {
	if sent < 0 || sent >= len(reminderSchedule) {
		return false
	}
	return age >= reminderSchedule[sent]
}

// Notifier delivers a cart reminder to the customer
type Notifier interface {
	NotifyCartReminder(ctx context.Context, cart *domain.AbandonedCart) error
}

// LogNotifier writes reminders to the log instead of sending them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCartReminder(_ context.Context, cart *domain.AbandonedCart) error {
	n.logger.Info("Sending abandoned cart reminder",
		zap.String("cart_id", cart.ID),
		zap.String("customer_email", cart.CustomerEmail),
		zap.Int("reminder", cart.ReminderCount),
		zap.String("total_value", cart.TotalValue.StringFixed(2)),
	)
	return nil
}

// CreateCartRequest records an abandoned cart snapshot
type CreateCartRequest struct {
	CustomerID    string            `json:"customer_id" binding:"required"`
	CustomerEmail string            `json:"customer_email" binding:"required"`
	Items         []domain.CartItem `json:"items" binding:"required,min=1"`
}

// CartService tracks abandoned carts and schedules reminders
type CartService struct {
	repos    *repository.Repositories
	notifier Notifier
	logger   *zap.Logger
	opts     options
}

// NewCartService creates a new cart service
func NewCartService(repos *repository.Repositories, notifier Notifier, logger *zap.Logger, opts ...Option) *CartService {
	return &CartService{
		repos:    repos,
		notifier: notifier,
		logger:   logger,
		opts:     buildOptions(opts),
	}
}

// SetNotifier swaps the reminder channel
func (s *CartService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateCart stores a new cart with no reminders sent
func (s *CartService) CreateCart(ctx context.Context, req CreateCartRequest) (*domain.AbandonedCart, error) {
	verr := &errors.ErrValidation{}
	if req.CustomerID == "" {
		verr.Add("customer_id", "is required")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		verr.Add("customer_email", "is required")
	}
	if len(req.Items) == 0 {
		verr.Add("items", "must contain at least one item")
	}
	total := decimal.Zero
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.Price.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.opts.now()
	cart := &domain.AbandonedCart{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
		TotalValue:    total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repos.Carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCart returns one cart
func (s *CartService) GetCart(ctx context.Context, id string) (*domain.AbandonedCart, error) {
	return s.repos.Carts.Get(ctx, id)
}

// ListByCustomer returns a customer's unrecovered carts, oldest first
func (s *CartService) ListByCustomer(ctx context.Context, customerID string) ([]*domain.AbandonedCart, error) {
	carts, err := s.repos.Carts.List(ctx)
	if err != nil {
		return nil, err
	}
	carts = repository.Filter(carts, func(c *domain.AbandonedCart) bool {
		return c.CustomerID == customerID && !c.IsRecovered
	})
	sort.SliceStable(carts, func(i, j int) bool { return carts[i].CreatedAt.Before(carts[j].CreatedAt) })
	return carts, nil
}

// MarkRecovered links a cart to the order that converted it
func (s *CartService) MarkRecovered(ctx context.Context, cartID, orderID string) (*domain.AbandonedCart, error) {
	if orderID == "" {
		verr := &errors.ErrValidation{}
		verr.Add("order_id", "is required")
		return nil, verr
	}
	if _, err := s.repos.Orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repos.Carts.Update(ctx, cartID, func(c *domain.AbandonedCart) error {
		if c.IsRecovered && c.RecoveredOrderID != orderID {
			return &errors.ErrInvalidStateTransition{
				Resource: "cart",
				From:     "recovered by " + c.RecoveredOrderID,
				To:       "recovered by " + orderID,
			}
		}
		c.IsRecovered = true
		c.RecoveredOrderID = orderID
		c.UpdatedAt = s.opts.now()
		return nil
	})
}

// SendReminder sends one reminder now regardless of schedule. A recovered cart is returned unchanged.
func (s *CartService) SendReminder(ctx context.Context, cartID string) (*domain.AbandonedCart, error) {
	var skipped bool
	cart, err := s.repos.Carts.Update(ctx, cartID, func(c *domain.AbandonedCart) error {
		skipped = c.IsRecovered
		if skipped {
			return nil
		}
		now := s.opts.now()
		c.ReminderCount++
		c.LastReminderSent = &now
		c.UpdatedAt = now
		return nil
	})
	if err != nil || skipped {
		return cart, err
	}
	s.notify(ctx, cart)
	return cart, nil
}

func (s *CartService) notify(ctx context.Context, cart *domain.AbandonedCart) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCartReminder(ctx, cart); err != nil {
		s.logger.Warn("Cart reminder delivery failed",
			zap.String("cart_id", cart.ID),
			zap.Error(err),
		)
	}
}

// errReminderNotDue aborts a claim whose cart changed since it was read
var errReminderNotDue = stderrors.New("reminder no longer due")

// ProcessAbandonedCarts sends every due reminder and returns how many were sent.
// Each reminder is claimed by an atomic update that re-checks the schedule, so
// overlapping sweeps never send the same reminder twice.
func (s *CartService) ProcessAbandonedCarts(ctx context.Context) (int, error) {
	carts, err := s.repos.Carts.List(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, snapshot := range carts {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		now := s.opts.now()
		if snapshot.IsRecovered || !ReminderDue(snapshot.ReminderCount, now.Sub(snapshot.CreatedAt)) {
			continue
		}

		observed := snapshot.ReminderCount
		claimed, err := s.repos.Carts.Update(ctx, snapshot.ID, func(c *domain.AbandonedCart) error {
			if c.IsRecovered || c.ReminderCount != observed || !ReminderDue(c.ReminderCount, now.Sub(c.CreatedAt)) {
				return errReminderNotDue
			}
			c.ReminderCount++
			c.LastReminderSent = &now
			c.UpdatedAt = now
			return nil
		})
		if stderrors.Is(err, errReminderNotDue) {
			continue
		}
		if err != nil {
			s.logger.Warn("Failed to claim cart reminder",
				zap.String("cart_id", snapshot.ID),
				zap.Error(err),
			)
			continue
		}

		s.notify(ctx, claimed)
		sent++
	}

	if sent > 0 {
		s.logger.Info("Abandoned cart sweep finished", zap.Int("reminders_sent", sent))
	}
	return sent, nil
}
