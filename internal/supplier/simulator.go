package supplier

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

const day = 24 * time.Hour

// TrackingBaseURL prefixes simulated tracking links
const TrackingBaseURL = "https://tracking.dropsim.local/"

// Simulator is an in-process supplier network backed by the supplier repositories.
// Logistics progress is derived from elapsed time since placement.
type Simulator struct {
	suppliers repository.Store[*domain.Supplier]
	products  repository.Store[*domain.SupplierProduct]
	orders    repository.Store[*domain.SupplierOrder]
	shipping  ShippingCostFunc
	now       func() time.Time
	logger    *zap.Logger

	mu     sync.RWMutex
	outage map[string]bool
}

// Option configures a Simulator
type Option func(*Simulator)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithShippingCost replaces the shipping quote function
func WithShippingCost(fn ShippingCostFunc) Option {
	return func(s *Simulator) { s.shipping = fn }
}

// NewSimulator creates a simulated supplier network
func NewSimulator(repos *repository.Repositories, logger *zap.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		suppliers: repos.Suppliers,
		products:  repos.SupplierProducts,
		orders:    repos.SupplierOrders,
		shipping:  DefaultShipping,
		now:       time.Now,
		logger:    logger,
		outage:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Gateway = (*Simulator)(nil)

// SetOutage makes every call for a supplier fail with a retryable error until cleared
func (s *Simulator) SetOutage(supplierID string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.outage[supplierID] = true
	} else {
		delete(s.outage, supplierID)
	}
}

func (s *Simulator) checkReachable(ctx context.Context, supplierID, operation string) error {
	if err := ctx.Err(); err != nil {
		return &errors.ErrSupplierUnavailable{SupplierID: supplierID, Operation: operation, Retryable: true, Cause: err}
	}
	s.mu.RLock()
	down := s.outage[supplierID]
	s.mu.RUnlock()
	if down {
		return &errors.ErrSupplierUnavailable{
			SupplierID: supplierID,
			Operation:  operation,
			Retryable:  true,
			Cause:      fmt.Errorf("supplier endpoint not responding"),
		}
	}
	return nil
}

// StatusAt derives a supplier order status from elapsed time since placement
func StatusAt(placedAt, now time.Time) domain.SupplierOrderStatus {
	elapsed := now.Sub(placedAt)
	switch {
	case elapsed < day:
		return domain.SupplierOrderPending
	case elapsed < 3*day:
		return domain.SupplierOrderProcessing
	case elapsed <= 7*day:
		return domain.SupplierOrderShipped
	default:
		return domain.SupplierOrderDelivered
	}
}

// TrackingNumber is stable for a supplier order id
func TrackingNumber(supplierOrderID string) string {
	compact := strings.ToUpper(strings.ReplaceAll(supplierOrderID, "-", ""))
	if len(compact) > 12 {
		compact = compact[:12]
	}
	return "TRK" + compact
}

// project applies elapsed-time logistics to a stored order
func (s *Simulator) project(order *domain.SupplierOrder) *domain.SupplierOrder {
	if order.Status == domain.SupplierOrderCancelled {
		return order
	}
	order.Status = StatusAt(order.PlacedAt, s.now())
	if order.Status.InTransit() {
		order.TrackingNumber = TrackingNumber(order.ID)
		order.TrackingURL = TrackingBaseURL + order.TrackingNumber
	}
	return order
}

func (s *Simulator) GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error) {
	return s.suppliers.Get(ctx, supplierID)
}

func (s *Simulator) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	return s.suppliers.List(ctx)
}

func (s *Simulator) GetProduct(ctx context.Context, supplierID, productID string) (*domain.SupplierProduct, error) {
	if err := s.checkReachable(ctx, supplierID, "get_product"); err != nil {
		return nil, err
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != supplierID {
		return nil, &errors.ErrNotFound{Resource: "supplier product", ID: productID}
	}
	return product, nil
}

func (s *Simulator) ListProducts(ctx context.Context, supplierID string) ([]*domain.SupplierProduct, error) {
	if err := s.checkReachable(ctx, supplierID, "list_products"); err != nil {
		return nil, err
	}
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	return repository.Filter(all, func(p *domain.SupplierProduct) bool {
		return p.SupplierID == supplierID
	}), nil
}

// CheckInventory returns 0 for products the supplier does not carry
func (s *Simulator) CheckInventory(ctx context.Context, supplierID, productID string) (int, error) {
	product, err := s.GetProduct(ctx, supplierID, productID)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return product.InventoryCount, nil
}

func (s *Simulator) CalculateShipping(ctx context.Context, supplierID string, productIDs []string, dest Destination) (decimal.Decimal, error) {
	if err := s.checkReachable(ctx, supplierID, "calculate_shipping"); err != nil {
		return decimal.Zero, err
	}
	sup, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return decimal.Zero, err
	}
	if !sup.ShipsTo(dest.Country) {
		return decimal.Zero, &errors.ErrUnsupportedDestination{SupplierID: supplierID, Country: dest.Country}
	}

	totalWeight := decimal.Zero
	for _, id := range productIDs {
		product, err := s.products.Get(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return decimal.Zero, err
		}
		if product.SupplierID == supplierID {
			totalWeight = totalWeight.Add(product.ShippingWeight)
		}
	}
	return s.shipping(sup, totalWeight), nil
}

func (s *Simulator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.SupplierOrder, error) {
	if err := s.checkReachable(ctx, req.SupplierID, "place_order"); err != nil {
		return nil, err
	}
	sup, err := s.suppliers.Get(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !sup.Active {
		return nil, &errors.ErrSupplierUnavailable{
			SupplierID: req.SupplierID,
			Operation:  "place_order",
			Cause:      fmt.Errorf("supplier is not accepting orders"),
		}
	}
	if len(req.Items) == 0 {
		v := &errors.ErrValidation{}
		v.Add("items", "at least one item is required")
		return nil, v
	}

	productIDs := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		productIDs = append(productIDs, line.SupplierProductID)
	}
	cost, err := s.CalculateShipping(ctx, req.SupplierID, productIDs, Destination{
		Country:    req.Destination.Country,
		PostalCode: req.Destination.PostalCode,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserveInventory(ctx, req.SupplierID, req.Items); err != nil {
		return nil, err
	}

	order := &domain.SupplierOrder{
		ID:              uuid.NewString(),
		SupplierID:      req.SupplierID,
		StoreOrderID:    req.StoreOrderID,
		Items:           slices.Clone(req.Items),
		ShippingAddress: req.Destination,
		ShippingMethod:  req.ShippingMethod,
		ShippingCost:    cost,
		Status:          domain.SupplierOrderPending,
		PlacedAt:        s.now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseInventory(ctx, req.Items)
		return nil, err
	}

	s.logger.Info("Supplier order placed",
		zap.String("supplier_id", req.SupplierID),
		zap.String("supplier_order_id", order.ID),
		zap.String("store_order_id", req.StoreOrderID),
		zap.String("shipping_cost", cost.StringFixed(2)),
	)
	return order, nil
}

// reserveInventory decrements stock line by line, undoing earlier lines if one fails
func (s *Simulator) reserveInventory(ctx context.Context, supplierID string, lines []domain.SupplierOrderLine) error {
	for i, line := range lines {
		_, err := s.products.Update(ctx, line.SupplierProductID, func(p *domain.SupplierProduct) error {
			if p.SupplierID != supplierID {
				return &errors.ErrNotFound{Resource: "supplier product", ID: line.SupplierProductID}
			}
			if !p.IsAvailable {
				return &errors.ErrSupplierUnavailable{
					SupplierID: supplierID,
					Operation:  "place_order",
					Cause:      fmt.Errorf("product %s is not available", p.ID),
				}
			}
			return adjustStock(p, line.SupplierVariantID, -line.Quantity)
		})
		if err != nil {
			s.releaseInventory(ctx, lines[:i])
			return err
		}
	}
	return nil
}

func (s *Simulator) releaseInventory(ctx context.Context, lines []domain.SupplierOrderLine) {
	for _, line := range lines {
		_, err := s.products.Update(ctx, line.SupplierProductID, func(p *domain.SupplierProduct) error {
			return adjustStock(p, line.SupplierVariantID, line.Quantity)
		})
		if err != nil {
			s.logger.Warn("Failed to release supplier inventory",
				zap.String("supplier_product_id", line.SupplierProductID),
				zap.Error(err),
			)
		}
	}
}

// adjustStock moves product and variant counters together
func adjustStock(p *domain.SupplierProduct, variantID string, delta int) error {
	if p.InventoryCount+delta < 0 {
		return &errors.ErrSupplierUnavailable{
			SupplierID: p.SupplierID,
			Operation:  "place_order",
			Cause:      fmt.Errorf("insufficient inventory for %s", p.ID),
		}
	}
	if variantID != "" {
		v, ok := p.Variant(variantID)
		if !ok {
			return &errors.ErrNotFound{Resource: "product variant", ID: variantID}
		}
		if v.InventoryCount+delta < 0 {
			return &errors.ErrSupplierUnavailable{
				SupplierID: p.SupplierID,
				Operation:  "place_order",
				Cause:      fmt.Errorf("insufficient inventory for variant %s", variantID),
			}
		}
		v.InventoryCount += delta
	}
	p.InventoryCount += delta
	return nil
}

func (s *Simulator) CheckOrderStatus(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error) {
	order, err := s.orders.Get(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkReachable(ctx, order.SupplierID, "check_order_status"); err != nil {
		return nil, err
	}
	return s.project(order), nil
}

// CancelOrder cancels a sub-order that has not been delivered and restocks its lines.
// Cancelling an already cancelled order is a no-op.
func (s *Simulator) CancelOrder(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error) {
	current, err := s.orders.Get(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkReachable(ctx, current.SupplierID, "cancel_order"); err != nil {
		return nil, err
	}

	alreadyCancelled := false
	updated, err := s.orders.Update(ctx, supplierOrderID, func(o *domain.SupplierOrder) error {
		alreadyCancelled = false
		if o.Status == domain.SupplierOrderCancelled {
			alreadyCancelled = true
			return nil
		}
		status := StatusAt(o.PlacedAt, s.now())
		if status == domain.SupplierOrderDelivered {
			return &errors.ErrInvalidStateTransition{
				Resource: "supplier order",
				From:     string(status),
				To:       string(domain.SupplierOrderCancelled),
			}
		}
		now := s.now()
		o.Status = domain.SupplierOrderCancelled
		o.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !alreadyCancelled {
		s.releaseInventory(ctx, updated.Items)
		s.logger.Info("Supplier order cancelled",
			zap.String("supplier_id", updated.SupplierID),
			zap.String("supplier_order_id", updated.ID),
		)
	}
	return updated, nil
}
