package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/supplier"
)

// Services bundles every service the API and worker need
type Services struct {
	Settings  *SettingsService
	Catalog   *CatalogService
	Discounts *DiscountService
	Orders    *OrderService
	Analytics *AnalyticsService
	Carts     *CartService
	Campaigns *CampaignService
}

// Deps are the collaborators shared by all services
type Deps struct {
	Repos        *repository.Repositories
	Gateway      supplier.Gateway
	Cache        JSONCache
	AnalyticsTTL time.Duration
	Notifier     Notifier
	Logger       *zap.Logger
}

// New wires the services together
func New(deps Deps, opts ...Option) *Services {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(deps.Logger)
	}
	analytics := NewAnalyticsService(deps.Repos, deps.Cache, deps.AnalyticsTTL, deps.Logger)
	repos := deps.Repos
	if analytics.caching() {
		tracked := *deps.Repos
		tracked.Orders = analytics.TrackOrders(deps.Repos.Orders)
		repos = &tracked
	}

	settings := NewSettingsService(repos, deps.Logger, opts...)
	discounts := NewDiscountService(repos, deps.Logger, opts...)
	catalog := NewCatalogService(repos, deps.Gateway, settings, deps.Logger, opts...)
	orders := NewOrderService(repos, deps.Gateway, settings, discounts, deps.Logger, opts...)
	orders.listings = catalog.listings
	return &Services{
		Settings:  settings,
		Catalog:   catalog,
		Discounts: discounts,
		Orders:    orders,
		Analytics: analytics,
		Carts:     NewCartService(repos, notifier, deps.Logger, opts...),
		Campaigns: NewCampaignService(repos, deps.Logger, opts...),
	}
}
