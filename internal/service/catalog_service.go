package service

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// StoreSKUPrefix marks SKUs owned by the store rather than the supplier
const StoreSKUPrefix = "STORE-"

const defaultLowStockThreshold = 10

var nonHandleChars = regexp.MustCompile(`[^a-z0-9]+`)

// ImportOverrides replaces fields of the imported listing. Nil fields keep the derived value.
type ImportOverrides struct {
	Title             *string               `json:"title,omitempty"`
	Description       *string               `json:"description,omitempty"`
	Status            *domain.ProductStatus `json:"status,omitempty"`
	Tags              []string              `json:"tags,omitempty"`
	MarkupPercentage  *decimal.Decimal      `json:"markup_percentage,omitempty"`
	LowStockThreshold *int                  `json:"low_stock_threshold,omitempty"`
	Taxable           *bool                 `json:"taxable,omitempty"`
	SEOHandle         *string               `json:"seo_handle,omitempty"`
}

// ProductMargin is the per-unit profit of a listing
type ProductMargin struct {
	ProductID        string       `json:"product_id"`
	Margin           domain.Money `json:"margin"`
	MarginPercentage domain.Money `json:"margin_percentage"`
}

// CatalogService manages store listings derived from supplier products
type CatalogService struct {
	repos    *repository.Repositories
	gateway  supplier.Gateway
	settings *SettingsService
	listings *sync.RWMutex
	logger   *zap.Logger
	opts     options
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	repos *repository.Repositories,
	gateway supplier.Gateway,
	settings *SettingsService,
	logger *zap.Logger,
	opts ...Option,
) *CatalogService {
	return &CatalogService{
		repos:    repos,
		gateway:  gateway,
		settings: settings,
		listings: new(sync.RWMutex),
		logger:   logger,
		opts:     buildOptions(opts),
	}
}

// SEOHandle lowercases a title and collapses every run of other characters into a dash
func SEOHandle(title string) string {
	return nonHandleChars.ReplaceAllString(strings.ToLower(title), "-")
}

func (s *CatalogService) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.callTimeout)
}

// ImportProductFromSupplier creates a draft listing priced by the markup policy
func (s *CatalogService) ImportProductFromSupplier(
	ctx context.Context,
	supplierID, supplierProductID string,
	overrides ImportOverrides,
) (*domain.StoreProduct, error) {
	verr := &errors.ErrValidation{}
	if supplierID == "" {
		verr.Add("supplier_id", "is required")
	}
	if supplierProductID == "" {
		verr.Add("supplier_product_id", "is required")
	}
	if overrides.Status != nil && !overrides.Status.IsValid() {
		verr.Add("status", "is not a valid product status")
	}
	if overrides.MarkupPercentage != nil && overrides.MarkupPercentage.IsNegative() {
		verr.Add("markup_percentage", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	callCtx, cancel := s.call(ctx)
	sp, err := s.gateway.GetProduct(callCtx, supplierID, supplierProductID)
	cancel()
	if err != nil {
		return nil, err
	}

	vendor := "Unknown Supplier"
	callCtx, cancel = s.call(ctx)
	sup, err := s.gateway.GetSupplier(callCtx, supplierID)
	cancel()
	switch {
	case err == nil:
		vendor = sup.Name
	case !errors.IsNotFound(err):
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	markup := ResolveMarkup(sp, settings.Markup)
	if overrides.MarkupPercentage != nil {
		markup = *overrides.MarkupPercentage
	}

	now := s.opts.now()
	product := &domain.StoreProduct{
		ID:                        uuid.New().String(),
		OriginalSupplierProductID: sp.ID,
		SupplierID:                sp.SupplierID,
		Title:                     sp.Name,
		Description:               sp.Description,
		Price:                     domain.ApplyMarkup(sp.BasePrice, markup),
		CostPrice:                 sp.BasePrice,
		MarkupPercentage:          markup,
		SKU:                       StoreSKUPrefix + sp.SKU,
		Weight:                    sp.ShippingWeight,
		Dimensions:                sp.Dimensions,
		Categories:                sp.Categories,
		Tags:                      []string{},
		Attributes:                sp.Attributes,
		Status:                    domain.ProductDraft,
		Vendor:                    vendor,
		InventoryTracking:         true,
		InventoryQuantity:         sp.InventoryCount,
		LowStockThreshold:         defaultLowStockThreshold,
		SEOHandle:                 SEOHandle(sp.Name),
		Taxable:                   true,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	for _, v := range sp.Variants {
		cost := VariantCost(sp, v)
		product.Variants = append(product.Variants, domain.StoreProductVariant{
			ID:                uuid.New().String(),
			SupplierVariantID: v.ID,
			Title:             v.Name,
			SKU:               StoreSKUPrefix + v.SKU,
			Price:             domain.ApplyMarkup(cost, markup),
			CostPrice:         cost,
			InventoryQuantity: v.InventoryCount,
			Attributes:        v.Attributes,
		})
	}
	applyOverrides(product, overrides)

	if err := s.repos.StoreProducts.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product imported from supplier",
		zap.String("product_id", product.ID),
		zap.String("supplier_id", supplierID),
		zap.String("supplier_product_id", supplierProductID),
		zap.String("markup", markup.String()),
	)
	return product, nil
}

func applyOverrides(p *domain.StoreProduct, o ImportOverrides) {
	if o.Title != nil {
		p.Title = *o.Title
		p.SEOHandle = SEOHandle(*o.Title)
	}
	if o.Description != nil {
		p.Description = *o.Description
	}
	if o.Status != nil {
		p.Status = *o.Status
	}
	if o.Tags != nil {
		p.Tags = o.Tags
	}
	if o.LowStockThreshold != nil {
		p.LowStockThreshold = *o.LowStockThreshold
	}
	if o.Taxable != nil {
		p.Taxable = *o.Taxable
	}
	if o.SEOHandle != nil {
		p.SEOHandle = *o.SEOHandle
	}
}

// GetProduct returns one listing
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.StoreProduct, error) {
	return s.repos.StoreProducts.Get(ctx, id)
}

// ListProducts returns every listing, newest first
func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.StoreProduct, error) {
	products, err := s.repos.StoreProducts.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

// SyncInventoryWithSupplier copies supplier stock onto the listing. It returns
// nil without error when the supplier product no longer exists.
func (s *CatalogService) SyncInventoryWithSupplier(ctx context.Context, productID string) (*domain.StoreProduct, error) {
	product, err := s.repos.StoreProducts.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.call(ctx)
	sp, err := s.gateway.GetProduct(callCtx, product.SupplierID, product.OriginalSupplierProductID)
	cancel()
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("Supplier product gone, skipping inventory sync",
				zap.String("product_id", productID),
				zap.String("supplier_product_id", product.OriginalSupplierProductID),
			)
			return nil, nil
		}
		return nil, err
	}

	return s.repos.StoreProducts.Update(ctx, productID, func(p *domain.StoreProduct) error {
		p.InventoryQuantity = sp.InventoryCount
		for i := range p.Variants {
			if sv, ok := matchSupplierVariant(sp, p.Variants[i]); ok {
				p.Variants[i].InventoryQuantity = sv.InventoryCount
			}
		}
		p.UpdatedAt = s.opts.now()
		return nil
	})
}

// matchSupplierVariant finds the upstream variant by id, falling back to the SKU without the store prefix
func matchSupplierVariant(sp *domain.SupplierProduct, v domain.StoreProductVariant) (*domain.ProductVariant, bool) {
	if v.SupplierVariantID != "" {
		if sv, ok := sp.Variant(v.SupplierVariantID); ok {
			return sv, true
		}
	}
	sku := strings.TrimPrefix(v.SKU, StoreSKUPrefix)
	for i := range sp.Variants {
		if sp.Variants[i].SKU == sku {
			return &sp.Variants[i], true
		}
	}
	return nil, false
}

// BulkSyncInventory syncs every listing and returns how many were updated
func (s *CatalogService) BulkSyncInventory(ctx context.Context) (int, error) {
	products, err := s.repos.StoreProducts.List(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		updated, err := s.SyncInventoryWithSupplier(ctx, p.ID)
		if err != nil {
			s.logger.Warn("Inventory sync failed",
				zap.String("product_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		if updated != nil {
			synced++
		}
	}

	s.logger.Info("Bulk inventory sync finished",
		zap.Int("products", len(products)),
		zap.Int("synced", synced),
	)
	return synced, nil
}

// CalculateProductMargin reports the per-unit margin of a listing
func CalculateProductMargin(p *domain.StoreProduct) ProductMargin {
	return ProductMargin{
		ProductID:        p.ID,
		Margin:           domain.NewMoney(p.Price.Sub(p.CostPrice)),
		MarginPercentage: domain.NewMoney(MarginPercent(p.Price, p.CostPrice)),
	}
}

// Margin loads a listing and reports its margin
func (s *CatalogService) Margin(ctx context.Context, productID string) (*ProductMargin, error) {
	p, err := s.repos.StoreProducts.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	m := CalculateProductMargin(p)
	return &m, nil
}

// RepriceProduct recomputes listing and variant prices from the current markup policy
func (s *CatalogService) RepriceProduct(ctx context.Context, productID string) (*domain.StoreProduct, error) {
	product, err := s.repos.StoreProducts.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.call(ctx)
	sp, err := s.gateway.GetProduct(callCtx, product.SupplierID, product.OriginalSupplierProductID)
	cancel()
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	markup := ResolveMarkup(sp, settings.Markup)

	updated, err := s.repos.StoreProducts.Update(ctx, productID, func(p *domain.StoreProduct) error {
		p.MarkupPercentage = markup
		p.CostPrice = sp.BasePrice
		p.Price = domain.ApplyMarkup(sp.BasePrice, markup)
		for i := range p.Variants {
			sv, ok := matchSupplierVariant(sp, p.Variants[i])
			if !ok {
				continue
			}
			cost := VariantCost(sp, *sv)
			p.Variants[i].CostPrice = cost
			p.Variants[i].Price = domain.ApplyMarkup(cost, markup)
		}
		p.UpdatedAt = s.opts.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product repriced",
		zap.String("product_id", productID),
		zap.String("markup", markup.String()),
		zap.String("price", domain.NewMoney(updated.Price).String()),
	)
	return updated, nil
}

// DeleteProduct removes a listing unless an open order still references it.
// Orders being priced finish before the check runs.
func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	s.listings.Lock()
	defer s.listings.Unlock()

	if _, err := s.repos.StoreProducts.Get(ctx, productID); err != nil {
		return err
	}

	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.Status.IsOpen() && o.HasProduct(productID) {
			return &errors.ErrInvalidStateTransition{
				Resource: "product",
				From:     "referenced by open order " + o.ID,
				To:       "deleted",
			}
		}
	}

	if err := s.repos.StoreProducts.Delete(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", productID))
	return nil
}
