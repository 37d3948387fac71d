package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// SettingsID is the id of the single store settings record
const SettingsID = "store"

// DefaultSettings returns the settings a new store starts with
func DefaultSettings() *domain.StoreSettings {
	return &domain.StoreSettings{
		ID:       SettingsID,
		Name:     "DropSim Store",
		Currency: "USD",
		Markup: domain.MarkupSettings{
			DefaultMarkupPercentage: decimal.NewFromInt(50),
			CategoryMarkups: map[string]decimal.Decimal{
				"Electronics": decimal.NewFromInt(40),
				"Clothing":    decimal.NewFromInt(80),
				"Accessories": decimal.NewFromInt(100),
				"Wearables":   decimal.NewFromInt(60),
			},
			SupplierMarkups: map[string]decimal.Decimal{
				"sup-001": decimal.NewFromInt(45),
				"sup-002": decimal.NewFromInt(75),
				"sup-003": decimal.NewFromInt(60),
			},
		},
		Automation: domain.AutomationSettings{
			AutoAcceptOrders:    true,
			AutoUpdateInventory: true,
			LowStockThreshold:   10,
		},
		Tax: domain.TaxSettings{
			ApplyTax: false,
			TaxRate:  decimal.Zero,
		},
	}
}

// SettingsService reads and updates the store settings record
type SettingsService struct {
	repos  *repository.Repositories
	logger *zap.Logger
	opts   options
}

// NewSettingsService creates a new settings service
func NewSettingsService(repos *repository.Repositories, logger *zap.Logger, opts ...Option) *SettingsService {
	return &SettingsService{
		repos:  repos,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Get returns the store settings, creating the defaults on first use
func (s *SettingsService) Get(ctx context.Context) (*domain.StoreSettings, error) {
	settings, err := s.repos.Settings.Get(ctx, SettingsID)
	if err == nil {
		return settings, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	settings = DefaultSettings()
	settings.UpdatedAt = s.opts.now()
	if err := s.repos.Settings.Create(ctx, settings); err != nil && !errors.IsConflict(err) {
		return nil, err
	}
	return s.repos.Settings.Get(ctx, SettingsID)
}

// UpdateMarkup replaces the markup policy. Existing store prices are not touched.
func (s *SettingsService) UpdateMarkup(ctx context.Context, markup domain.MarkupSettings) (*domain.StoreSettings, error) {
	verr := &errors.ErrValidation{}
	if markup.DefaultMarkupPercentage.IsNegative() {
		verr.Add("default_markup_percentage", "must not be negative")
	}
	for category, pct := range markup.CategoryMarkups {
		if pct.IsNegative() {
			verr.Add("category_markups."+category, "must not be negative")
		}
	}
	for supplierID, pct := range markup.SupplierMarkups {
		if pct.IsNegative() {
			verr.Add("supplier_markups."+supplierID, "must not be negative")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	updated, err := s.repos.Settings.Update(ctx, SettingsID, func(st *domain.StoreSettings) error {
		st.Markup = markup
		st.UpdatedAt = s.opts.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Markup settings updated",
		zap.String("default_markup", markup.DefaultMarkupPercentage.String()),
		zap.Int("category_overrides", len(markup.CategoryMarkups)),
		zap.Int("supplier_overrides", len(markup.SupplierMarkups)),
	)
	return updated, nil
}

// UpdateAutomation replaces the automation toggles
func (s *SettingsService) UpdateAutomation(ctx context.Context, automation domain.AutomationSettings) (*domain.StoreSettings, error) {
	if automation.LowStockThreshold < 0 {
		verr := &errors.ErrValidation{}
		verr.Add("low_stock_threshold", "must not be negative")
		return nil, verr
	}
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	return s.repos.Settings.Update(ctx, SettingsID, func(st *domain.StoreSettings) error {
		st.Automation = automation
		st.UpdatedAt = s.opts.now()
		return nil
	})
}

// UpdateTax replaces the tax settings
func (s *SettingsService) UpdateTax(ctx context.Context, tax domain.TaxSettings) (*domain.StoreSettings, error) {
	if tax.TaxRate.IsNegative() || tax.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		verr := &errors.ErrValidation{}
		verr.Add("tax_rate", "must be between 0 and 100")
		return nil, verr
	}
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	return s.repos.Settings.Update(ctx, SettingsID, func(st *domain.StoreSettings) error {
		st.Tax = tax
		st.UpdatedAt = s.opts.now()
		return nil
	})
}
