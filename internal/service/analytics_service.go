package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

const topProductsLimit = 5

// JSONCache stores computed reports
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DateRange is an inclusive createdAt window
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ProductSales is one product's share of revenue
type ProductSales struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	Revenue   domain.Money `json:"revenue"`
}

// OrderAnalytics summarizes orders in a date range
type OrderAnalytics struct {
	Range             DateRange                  `json:"range"`
	TotalOrders       int                        `json:"total_orders"`
	TotalRevenue      domain.Money               `json:"total_revenue"`
	TotalProfit       domain.Money               `json:"total_profit"`
	AverageOrderValue domain.Money               `json:"average_order_value"`
	FulfillmentRate   domain.Money               `json:"fulfillment_rate"`
	TopProducts       []ProductSales             `json:"top_products"`
	OrdersByStatus    map[domain.OrderStatus]int `json:"orders_by_status"`
}

// AnalyticsService aggregates order history
type AnalyticsService struct {
	repos  *repository.Repositories
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnalyticsService creates a new analytics service. cache may be nil.
func NewAnalyticsService(repos *repository.Repositories, cache JSONCache, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repos:  repos,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

const generationKey = "analytics:orders:generation"

func analyticsKey(generation string, r DateRange) string {
	return fmt.Sprintf("analytics:orders:%s:%d:%d", generation, r.Start.UnixNano(), r.End.UnixNano())
}

func (s *AnalyticsService) caching() bool {
	return s.cache != nil && s.ttl > 0
}

// generation names the current set of cached reports. A missing token reads
// as "0" until the first order write.
func (s *AnalyticsService) generation(ctx context.Context) (string, error) {
	var token string
	hit, err := s.cache.GetJSON(ctx, generationKey, &token)
	if err != nil {
		return "", err
	}
	if !hit || token == "" {
		return "0", nil
	}
	return token, nil
}

// Invalidate retires every cached report. The token is replaced rather than
// incremented so concurrent writers never hand out a token seen before.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if !s.caching() {
		return
	}
	if err := s.cache.SetJSON(ctx, generationKey, uuid.NewString(), 0); err != nil {
		s.logger.Warn("Analytics cache invalidation failed", zap.Error(err))
	}
}

// TrackOrders wraps an order store so every write invalidates cached reports
func (s *AnalyticsService) TrackOrders(orders repository.Store[*domain.Order]) repository.Store[*domain.Order] {
	return &trackedOrders{Store: orders, analytics: s}
}

type trackedOrders struct {
	repository.Store[*domain.Order]
	analytics *AnalyticsService
}

func (t *trackedOrders) Create(ctx context.Context, o *domain.Order) error {
	if err := t.Store.Create(ctx, o); err != nil {
		return err
	}
	t.analytics.Invalidate(ctx)
	return nil
}

func (t *trackedOrders) Save(ctx context.Context, o *domain.Order) error {
	if err := t.Store.Save(ctx, o); err != nil {
		return err
	}
	t.analytics.Invalidate(ctx)
	return nil
}

func (t *trackedOrders) Update(ctx context.Context, id string, fn repository.MutateFunc[*domain.Order]) (*domain.Order, error) {
	o, err := t.Store.Update(ctx, id, fn)
	if err != nil {
		return o, err
	}
	t.analytics.Invalidate(ctx)
	return o, nil
}

func (t *trackedOrders) Delete(ctx context.Context, id string) error {
	if err := t.Store.Delete(ctx, id); err != nil {
		return err
	}
	t.analytics.Invalidate(ctx)
	return nil
}

// GetOrderAnalytics reports totals for orders created within the range.
// Cancelled orders count toward the order total but not revenue or profit.
func (s *AnalyticsService) GetOrderAnalytics(ctx context.Context, r DateRange) (*OrderAnalytics, error) {
	if r.End.Before(r.Start) {
		verr := &errors.ErrValidation{}
		verr.Add("end", "must not be before start")
		return nil, verr
	}

	// the token is read before the orders so a report built from older data
	// is filed under a generation that a concurrent write has already retired
	var key string
	if s.caching() {
		generation, err := s.generation(ctx)
		if err != nil {
			s.logger.Warn("Analytics cache read failed", zap.Error(err))
		} else {
			key = analyticsKey(generation, r)
			var cached OrderAnalytics
			hit, err := s.cache.GetJSON(ctx, key, &cached)
			if err != nil {
				s.logger.Warn("Analytics cache read failed", zap.Error(err))
			} else if hit {
				return &cached, nil
			}
		}
	}

	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, err
	}
	report := Aggregate(orders, r)

	if key != "" {
		if err := s.cache.SetJSON(ctx, key, report, s.ttl); err != nil {
			s.logger.Warn("Analytics cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

type productTally struct {
	productID string
	name      string
	quantity  int
	revenue   decimal.Decimal
}

// Aggregate computes the analytics report over a set of orders
func Aggregate(orders []*domain.Order, r DateRange) *OrderAnalytics {
	var total, fulfilled int
	revenue, profit := decimal.Zero, decimal.Zero
	tallies := make(map[string]*productTally)
	byStatus := make(map[domain.OrderStatus]int)

	for _, o := range orders {
		if o.CreatedAt.Before(r.Start) || o.CreatedAt.After(r.End) {
			continue
		}
		total++
		byStatus[o.Status]++
		if o.Status == domain.OrderStatusCancelled {
			continue
		}

		revenue = revenue.Add(o.Total)
		profit = profit.Add(profitOf(o).profit)
		for _, item := range o.Items {
			t, ok := tallies[item.ProductID]
			if !ok {
				t = &productTally{productID: item.ProductID, name: item.Name, revenue: decimal.Zero}
				tallies[item.ProductID] = t
			}
			t.quantity += item.Quantity
			t.revenue = t.revenue.Add(item.TotalPrice)
		}
		if o.Status == domain.OrderStatusCompleted || o.FulfillmentStatus == domain.FulfillmentFulfilled {
			fulfilled++
		}
	}

	ranked := make([]*productTally, 0, len(tallies))
	for _, t := range tallies {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].revenue.Cmp(ranked[j].revenue); c != 0 {
			return c > 0
		}
		return ranked[i].productID < ranked[j].productID
	})
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	top := make([]ProductSales, 0, len(ranked))
	for _, t := range ranked {
		top = append(top, ProductSales{
			ProductID: t.productID,
			Name:      t.name,
			Quantity:  t.quantity,
			Revenue:   domain.NewMoney(t.revenue),
		})
	}

	average, rate := decimal.Zero, decimal.Zero
	if total > 0 {
		n := decimal.NewFromInt(int64(total))
		average = revenue.Div(n)
		rate = decimal.NewFromInt(int64(fulfilled)).Div(n).Mul(decimal.NewFromInt(100))
	}

	return &OrderAnalytics{
		Range:             r,
		TotalOrders:       total,
		TotalRevenue:      domain.NewMoney(revenue),
		TotalProfit:       domain.NewMoney(profit),
		AverageOrderValue: domain.NewMoney(average),
		FulfillmentRate:   domain.NewMoney(rate),
		TopProducts:       top,
		OrdersByStatus:    byStatus,
	}
}
