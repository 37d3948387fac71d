package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// maxParallelSupplierCalls caps the fan-out of one order across suppliers
const maxParallelSupplierCalls = 8

// OrderTaskEnqueuer hands order processing to a background worker
type OrderTaskEnqueuer interface {
	EnqueueProcessOrder(ctx context.Context, orderID string) error
}

// OrderService runs the order pipeline: creation, supplier dispatch,
// fulfillment tracking and cancellation
type OrderService struct {
	repos     *repository.Repositories
	gateway   supplier.Gateway
	settings  *SettingsService
	discounts *DiscountService
	enqueuer  OrderTaskEnqueuer
	// held for reading while an order is priced and stored; product deletion takes it for writing
	listings *sync.RWMutex
	logger   *zap.Logger
	opts     options
}

// NewOrderService creates a new order service
func NewOrderService(
	repos *repository.Repositories,
	gateway supplier.Gateway,
	settings *SettingsService,
	discounts *DiscountService,
	logger *zap.Logger,
	opts ...Option,
) *OrderService {
	return &OrderService{
		repos:     repos,
		gateway:   gateway,
		settings:  settings,
		discounts: discounts,
		listings:  new(sync.RWMutex),
		logger:    logger,
		opts:      buildOptions(opts),
	}
}

// SetEnqueuer makes auto-accepted orders process in the background
func (s *OrderService) SetEnqueuer(e OrderTaskEnqueuer) {
	s.enqueuer = e
}

func (s *OrderService) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.callTimeout)
}

// supplierError turns a timed out call into a retryable supplier failure
func supplierError(supplierID, operation string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return &errors.ErrSupplierUnavailable{
			SupplierID: supplierID,
			Operation:  operation,
			Retryable:  true,
			Cause:      err,
		}
	}
	return err
}

func orderNumber(id string, ms int64) string {
	return fmt.Sprintf("ORD-%06d-%s", ms%1000000, strings.ToUpper(id[:4]))
}

// CreateOrder prices a checkout submission, redeems its discount code and
// stores the order as pending. When auto-accept is on the order is then
// processed inline, or queued when a worker is attached. A processing failure
// is returned together with the stored order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	verr := &errors.ErrValidation{}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		verr.Add("customer_email", "is required")
	}
	if req.ShippingAddress.Country == "" {
		verr.Add("shipping_address.country", "is required")
	}
	if len(req.Items) == 0 {
		verr.Add("items", "must contain at least one item")
	}
	if req.Source != "" && !req.Source.IsValid() {
		verr.Add("source", "is not a valid order source")
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			verr.Add(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.storePending(ctx, req, settings)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
	)

	if !settings.Automation.AutoAcceptOrders {
		return order, nil
	}
	if s.enqueuer != nil {
		err := s.enqueuer.EnqueueProcessOrder(ctx, order.ID)
		if err == nil {
			return order, nil
		}
		s.logger.Warn("Failed to enqueue order processing, processing inline",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	processed, err := s.ProcessOrder(ctx, order.ID)
	if processed == nil {
		processed = order
	}
	return processed, err
}

// storePending prices the order, redeems its discount and stores it. A
// redemption is handed back when the order cannot be stored.
func (s *OrderService) storePending(ctx context.Context, req CreateOrderRequest, settings *domain.StoreSettings) (*domain.Order, error) {
	s.listings.RLock()
	defer s.listings.RUnlock()

	items, err := s.buildItems(ctx, req.Items, settings.Tax)
	if err != nil {
		return nil, err
	}

	shipping, err := s.quoteOrderShipping(ctx, items, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	subtotal, tax := decimal.Zero, decimal.Zero
	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		subtotal = subtotal.Add(item.TotalPrice)
		tax = tax.Add(item.TaxAmount)
		productIDs = append(productIDs, item.ProductID)
	}

	discount := decimal.Zero
	var codes []string
	if req.DiscountCode != "" {
		applied, err := s.discounts.Apply(ctx, DiscountRequest{
			Code:       req.DiscountCode,
			OrderTotal: subtotal,
			ProductIDs: productIDs,
			CustomerID: req.CustomerID,
		})
		if err != nil {
			return nil, err
		}
		discount = applied.DiscountAmount.Decimal
		codes = append(codes, applied.Code)
	}

	now := s.opts.now()
	id := uuid.New().String()
	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	source := req.Source
	if source == "" {
		source = domain.SourceWebsite
	}
	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}
	name := req.CustomerName
	if name == "" {
		name = req.ShippingAddress.FullName()
	}
	method := req.ShippingMethod
	if method == "" {
		method = "Standard"
	}

	order := &domain.Order{
		ID:              id,
		OrderNumber:     orderNumber(id, now.UnixMilli()),
		CustomerID:      req.CustomerID,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    name,
		CustomerPhone:   req.CustomerPhone,
		BillingAddress:  billing,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Payment: domain.PaymentInfo{
			Method: req.PaymentMethod,
			Status: domain.PaymentPending,
			Amount: total,
		},
		Subtotal:          subtotal,
		ShippingCost:      shipping,
		TaxAmount:         tax,
		DiscountAmount:    discount,
		Total:             total,
		Currency:          settings.Currency,
		Status:            domain.OrderStatusPending,
		FulfillmentStatus: domain.FulfillmentUnfulfilled,
		Notes:             req.Notes,
		Tags:              req.Tags,
		SupplierOrders:    []domain.SupplierOrderReference{},
		ShippingMethod:    method,
		Source:            source,
		DiscountCodes:     codes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repos.Orders.Create(ctx, order); err != nil {
		for _, code := range codes {
			if rerr := s.discounts.Release(ctx, code, req.CustomerID); rerr != nil {
				s.logger.Error("Failed to release discount redemption",
					zap.String("code", code),
					zap.String("customer_id", req.CustomerID),
					zap.Error(rerr),
				)
			}
		}
		return nil, err
	}
	return order, nil
}

// buildItems resolves each requested line against the catalog
func (s *OrderService) buildItems(ctx context.Context, reqs []OrderItemRequest, tax domain.TaxSettings) ([]domain.OrderItem, error) {
	verr := &errors.ErrValidation{}
	items := make([]domain.OrderItem, 0, len(reqs))

	for i, r := range reqs {
		field := fmt.Sprintf("items[%d]", i)
		product, err := s.repos.StoreProducts.Get(ctx, r.ProductID)
		if errors.IsNotFound(err) {
			verr.Add(field+".product_id", "unknown product "+r.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if product.Status == domain.ProductArchived {
			verr.Add(field+".product_id", "product is archived")
			continue
		}

		item := domain.OrderItem{
			ID:                uuid.New().String(),
			ProductID:         product.ID,
			SKU:               product.SKU,
			Name:              product.Title,
			Quantity:          r.Quantity,
			UnitPrice:         product.Price,
			UnitCost:          product.CostPrice,
			Attributes:        product.Attributes,
			Taxable:           product.Taxable,
			Weight:            product.Weight,
			FulfillmentStatus: domain.FulfillmentUnfulfilled,
			SupplierProductID: product.OriginalSupplierProductID,
			SupplierID:        product.SupplierID,
		}
		if r.VariantID != "" {
			idx := slices.IndexFunc(product.Variants, func(v domain.StoreProductVariant) bool { return v.ID == r.VariantID })
			if idx < 0 {
				verr.Add(field+".variant_id", "unknown variant "+r.VariantID)
				continue
			}
			v := product.Variants[idx]
			item.VariantID = v.ID
			item.SKU = v.SKU
			item.Name = product.Title + " - " + v.Title
			item.UnitPrice = v.Price
			item.UnitCost = v.CostPrice
			item.Attributes = v.Attributes
			item.SupplierVariantID = v.SupplierVariantID
		}

		qty := decimal.NewFromInt(int64(r.Quantity))
		item.TotalPrice = item.UnitPrice.Mul(qty)
		item.TotalCost = item.UnitCost.Mul(qty)
		if tax.ApplyTax && !tax.TaxIncluded && item.Taxable {
			item.TaxRate = tax.TaxRate
			item.TaxAmount = domain.Percent(item.TotalPrice, tax.TaxRate)
		}
		items = append(items, item)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return items, nil
}

// quoteOrderShipping asks every supplier of the order for a quote. The first
// failing quote cancels the rest.
func (s *OrderService) quoteOrderShipping(ctx context.Context, items []domain.OrderItem, addr domain.Address) (decimal.Decimal, error) {
	groups := groupItemsBySupplier(items)
	quotes := make([]decimal.Decimal, len(groups))
	dest := supplier.Destination{Country: addr.Country, PostalCode: addr.PostalCode}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSupplierCalls)
	for i, group := range groups {
		g.Go(func() error {
			productIDs := make([]string, 0, len(group.items))
			for _, item := range group.items {
				productIDs = append(productIDs, item.SupplierProductID)
			}
			callCtx, cancel := s.call(gctx)
			defer cancel()
			quote, err := s.gateway.CalculateShipping(callCtx, group.supplierID, productIDs, dest)
			if err != nil {
				return supplierError(group.supplierID, "calculate shipping", err)
			}
			quotes[i] = quote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, q := range quotes {
		total = total.Add(q)
	}
	return total, nil
}

// QuoteShipping returns one supplier's shipping quote
func (s *OrderService) QuoteShipping(ctx context.Context, req ShippingQuoteRequest) (domain.Money, error) {
	callCtx, cancel := s.call(ctx)
	defer cancel()
	quote, err := s.gateway.CalculateShipping(callCtx, req.SupplierID, req.ProductIDs, supplier.Destination{
		Country:    req.Country,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		return domain.Money{}, supplierError(req.SupplierID, "calculate shipping", err)
	}
	return domain.NewMoney(quote), nil
}

type supplierGroup struct {
	supplierID string
	items      []domain.OrderItem
}

// groupItemsBySupplier partitions items by supplier in order of first appearance
func groupItemsBySupplier(items []domain.OrderItem) []supplierGroup {
	var groups []supplierGroup
	index := make(map[string]int)
	for _, item := range items {
		i, ok := index[item.SupplierID]
		if !ok {
			i = len(groups)
			index[item.SupplierID] = i
			groups = append(groups, supplierGroup{supplierID: item.SupplierID})
		}
		groups[i].items = append(groups[i].items, item)
	}
	return groups
}

type dispatchResult struct {
	supplierID string
	ref        *domain.SupplierOrderReference
	err        error
}

// dispatch places one sub-order per group concurrently. Results keep group order.
func (s *OrderService) dispatch(ctx context.Context, order *domain.Order, groups []supplierGroup) []dispatchResult {
	results := make([]dispatchResult, len(groups))
	var g errgroup.Group
	g.SetLimit(maxParallelSupplierCalls)
	for i, group := range groups {
		g.Go(func() error {
			results[i] = s.placeGroup(ctx, order, group)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *OrderService) placeGroup(ctx context.Context, order *domain.Order, group supplierGroup) dispatchResult {
	res := dispatchResult{supplierID: group.supplierID}

	callCtx, cancel := s.call(ctx)
	sup, err := s.gateway.GetSupplier(callCtx, group.supplierID)
	cancel()
	if err != nil {
		res.err = supplierError(group.supplierID, "get supplier", err)
		return res
	}

	lines := make([]domain.SupplierOrderLine, 0, len(group.items))
	refs := make([]domain.SupplierOrderItemRef, 0, len(group.items))
	for _, item := range group.items {
		lines = append(lines, domain.SupplierOrderLine{
			OrderItemID:       item.ID,
			SupplierProductID: item.SupplierProductID,
			SupplierVariantID: item.SupplierVariantID,
			Quantity:          item.Quantity,
		})
		refs = append(refs, domain.SupplierOrderItemRef{OrderItemID: item.ID, Quantity: item.Quantity})
	}

	callCtx, cancel = s.call(ctx)
	placed, err := s.gateway.PlaceOrder(callCtx, supplier.PlaceOrderRequest{
		SupplierID:     group.supplierID,
		StoreOrderID:   order.ID,
		Items:          lines,
		Destination:    order.ShippingAddress,
		ShippingMethod: order.ShippingMethod,
	})
	cancel()
	if err != nil {
		res.err = supplierError(group.supplierID, "place order", err)
		return res
	}

	now := s.opts.now()
	res.ref = &domain.SupplierOrderReference{
		ID:             placed.ID,
		SupplierID:     group.supplierID,
		SupplierName:   sup.Name,
		Items:          refs,
		Status:         placed.Status,
		TrackingNumber: placed.TrackingNumber,
		TrackingURL:    placed.TrackingURL,
		ShippingMethod: placed.ShippingMethod,
		ShippingCost:   placed.ShippingCost,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return res
}

// ProcessOrder claims a pending order, places one sub-order per supplier and
// records the references. Successful sub-orders are kept when others fail; if
// none succeed the order goes back to its previous status.
func (s *OrderService) ProcessOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var prior domain.OrderStatus
	claimed, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusPaymentPending {
			return &errors.ErrInvalidStateTransition{
				Resource: "order",
				From:     string(o.Status),
				To:       string(domain.OrderStatusProcessing),
			}
		}
		prior = o.Status
		now := s.opts.now()
		o.Status = domain.OrderStatusProcessing
		o.ProcessedAt = &now
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Processing order",
		zap.String("order_id", orderID),
		zap.String("from", string(prior)),
	)

	results := s.dispatch(ctx, claimed, groupItemsBySupplier(claimed.Items))
	return s.mergeDispatch(ctx, orderID, prior, results)
}

// RetryFailedGroups re-dispatches only the supplier groups that failed earlier
func (s *OrderService) RetryFailedGroups(ctx context.Context, orderID string) (*domain.Order, error) {
	var failed []string
	claimed, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status != domain.OrderStatusProcessing || len(o.FailedSupplierIDs) == 0 {
			return &errors.ErrInvalidStateTransition{
				Resource: "order",
				From:     string(o.Status),
				To:       "retry",
			}
		}
		failed = slices.Clone(o.FailedSupplierIDs)
		o.FailedSupplierIDs = nil
		o.UpdatedAt = s.opts.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	groups := repository.Filter(groupItemsBySupplier(claimed.Items), func(g supplierGroup) bool {
		return slices.Contains(failed, g.supplierID)
	})
	s.logger.Info("Retrying failed supplier groups",
		zap.String("order_id", orderID),
		zap.Strings("supplier_ids", failed),
	)

	results := s.dispatch(ctx, claimed, groups)
	return s.mergeDispatch(ctx, orderID, claimed.Status, results)
}

// mergeDispatch records dispatch results on the order in one atomic update
func (s *OrderService) mergeDispatch(ctx context.Context, orderID string, prior domain.OrderStatus, results []dispatchResult) (*domain.Order, error) {
	var (
		placed    []domain.SupplierOrderReference
		succeeded []string
		failures  []errors.GroupFailure
		failedIDs []string
	)
	for _, r := range results {
		if r.err != nil {
			failures = append(failures, errors.GroupFailure{
				SupplierID: r.supplierID,
				Reason:     r.err.Error(),
				Retryable:  errors.IsRetryable(r.err),
			})
			failedIDs = append(failedIDs, r.supplierID)
			s.logger.Warn("Supplier dispatch failed",
				zap.String("order_id", orderID),
				zap.String("supplier_id", r.supplierID),
				zap.Error(r.err),
			)
			continue
		}
		placed = append(placed, *r.ref)
		succeeded = append(succeeded, r.supplierID)
	}

	var cancelledMeanwhile bool
	updated, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		now := s.opts.now()
		cancelledMeanwhile = o.Status == domain.OrderStatusCancelled
		o.SupplierOrders = append(o.SupplierOrders, placed...)
		o.FailedSupplierIDs = slices.DeleteFunc(o.FailedSupplierIDs, func(id string) bool {
			return slices.Contains(succeeded, id)
		})
		for _, id := range failedIDs {
			if !slices.Contains(o.FailedSupplierIDs, id) {
				o.FailedSupplierIDs = append(o.FailedSupplierIDs, id)
			}
		}
		if len(o.SupplierOrders) == 0 && o.Status == domain.OrderStatusProcessing {
			o.Status = prior
			o.ProcessedAt = nil
		}
		if len(o.SupplierOrders) > 0 {
			o.FulfillmentStatus = domain.AggregateFulfillment(o.ReferenceStatuses())
		}
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		// sub-orders already placed would be orphaned, so take them back
		if len(placed) > 0 {
			s.logger.Error("Failed to record supplier orders, cancelling them",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
			s.cancelAtSuppliers(ctx, "", placed)
		}
		return nil, err
	}

	if cancelledMeanwhile {
		s.logger.Warn("Order cancelled during dispatch, cancelling placed supplier orders",
			zap.String("order_id", orderID),
			zap.Int("supplier_orders", len(placed)),
		)
		s.cancelAtSuppliers(ctx, orderID, placed)
		latest, getErr := s.repos.Orders.Get(ctx, orderID)
		if getErr == nil {
			updated = latest
		}
		return updated, &errors.ErrInvalidStateTransition{
			Resource: "order",
			From:     string(domain.OrderStatusCancelled),
			To:       string(domain.OrderStatusProcessing),
		}
	}

	s.logger.Info("Order dispatched",
		zap.String("order_id", orderID),
		zap.Strings("succeeded", succeeded),
		zap.Strings("failed", failedIDs),
		zap.String("status", string(updated.Status)),
	)

	switch {
	case len(failures) == 0:
		return updated, nil
	case len(placed) > 0:
		return updated, &errors.ErrPartialDispatch{
			OrderID:   orderID,
			Succeeded: succeeded,
			Failed:    failures,
		}
	case len(results) == 1:
		return updated, results[0].err
	default:
		retryable := false
		for _, f := range failures {
			retryable = retryable || f.Retryable
		}
		return updated, &errors.ErrSupplierUnavailable{
			SupplierID: strings.Join(failedIDs, ","),
			Operation:  "dispatch",
			Retryable:  retryable,
			Cause:      &errors.ErrPartialDispatch{OrderID: orderID, Failed: failures},
		}
	}
}

// cancelAtSuppliers asks each supplier to cancel and marks the confirmed
// references cancelled. Failures are logged only. An empty orderID skips the
// bookkeeping.
func (s *OrderService) cancelAtSuppliers(ctx context.Context, orderID string, refs []domain.SupplierOrderReference) {
	confirmed := make(map[string]bool)
	for _, ref := range refs {
		callCtx, cancel := s.call(ctx)
		_, err := s.gateway.CancelOrder(callCtx, ref.ID)
		cancel()
		if err != nil {
			s.logger.Warn("Failed to cancel supplier order",
				zap.String("order_id", orderID),
				zap.String("supplier_order_id", ref.ID),
				zap.String("supplier_id", ref.SupplierID),
				zap.Error(err),
			)
			continue
		}
		confirmed[ref.ID] = true
	}
	if orderID == "" || len(confirmed) == 0 {
		return
	}

	_, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		now := s.opts.now()
		for i := range o.SupplierOrders {
			if confirmed[o.SupplierOrders[i].ID] {
				o.SupplierOrders[i].Status = domain.SupplierOrderCancelled
				o.SupplierOrders[i].UpdatedAt = now
			}
		}
		o.FulfillmentStatus = domain.AggregateFulfillment(o.ReferenceStatuses())
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record supplier cancellations",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

type statusPoll struct {
	ref    domain.SupplierOrderReference
	result *domain.SupplierOrder
	err    error
}

// UpdateFulfillmentStatus re-polls every live supplier reference, recomputes the
// aggregate fulfillment status and completes the order once everything has
// shipped and no supplier group is waiting for a retry. References that could not be polled keep their last known status and
// the first failure is returned with the updated order.
func (s *OrderService) UpdateFulfillmentStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(order.SupplierOrders) == 0 {
		return order, nil
	}

	polls := make([]statusPoll, 0, len(order.SupplierOrders))
	for _, ref := range order.SupplierOrders {
		if !ref.Status.IsTerminal() {
			polls = append(polls, statusPoll{ref: ref})
		}
	}

	var g errgroup.Group
	g.SetLimit(maxParallelSupplierCalls)
	for i := range polls {
		g.Go(func() error {
			callCtx, cancel := s.call(ctx)
			defer cancel()
			polls[i].result, polls[i].err = s.gateway.CheckOrderStatus(callCtx, polls[i].ref.ID)
			if polls[i].err != nil {
				polls[i].err = supplierError(polls[i].ref.SupplierID, "check order status", polls[i].err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var promoted bool
	updated, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		now := s.opts.now()
		promoted = false
		for _, p := range polls {
			if p.result == nil {
				continue
			}
			idx := slices.IndexFunc(o.SupplierOrders, func(r domain.SupplierOrderReference) bool { return r.ID == p.ref.ID })
			if idx < 0 || o.SupplierOrders[idx].Status == domain.SupplierOrderCancelled {
				continue
			}
			ref := &o.SupplierOrders[idx]
			ref.Status = p.result.Status
			ref.TrackingNumber = p.result.TrackingNumber
			ref.TrackingURL = p.result.TrackingURL
			ref.UpdatedAt = now
		}

		itemStatus := make(map[string]domain.FulfillmentStatus)
		for _, ref := range o.SupplierOrders {
			fs := domain.FulfillmentUnfulfilled
			if ref.Status.InTransit() {
				fs = domain.FulfillmentFulfilled
			}
			for _, it := range ref.Items {
				itemStatus[it.OrderItemID] = fs
			}
		}
		for i := range o.Items {
			if fs, ok := itemStatus[o.Items[i].ID]; ok {
				o.Items[i].FulfillmentStatus = fs
			}
		}

		o.FulfillmentStatus = domain.AggregateFulfillment(o.ReferenceStatuses())
		// groups that were never placed keep the order open until a retry places them
		if len(o.FailedSupplierIDs) > 0 && o.FulfillmentStatus == domain.FulfillmentFulfilled {
			o.FulfillmentStatus = domain.FulfillmentPartiallyFulfilled
		}
		if o.FulfillmentStatus == domain.FulfillmentFulfilled &&
			o.Status == domain.OrderStatusProcessing &&
			o.Status.CanTransitionTo(domain.OrderStatusCompleted) {
			o.Status = domain.OrderStatusCompleted
			o.CompletedAt = &now
			promoted = true
		}
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.logger.Info("Order completed", zap.String("order_id", orderID))
	}
	for _, p := range polls {
		if p.err != nil {
			s.logger.Warn("Supplier status poll failed",
				zap.String("order_id", orderID),
				zap.String("supplier_order_id", p.ref.ID),
				zap.Error(p.err),
			)
			return updated, p.err
		}
	}
	return updated, nil
}

// CancelOrder cancels an order that has not completed and asks each supplier
// to cancel its live sub-order. Supplier failures do not undo the cancellation.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	var live []domain.SupplierOrderReference
	updated, err := s.repos.Orders.Update(ctx, orderID, func(o *domain.Order) error {
		live = nil
		if o.Status == domain.OrderStatusCompleted {
			return &errors.ErrAlreadyCompleted{OrderID: o.ID}
		}
		if !o.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return &errors.ErrInvalidStateTransition{
				Resource: "order",
				From:     string(o.Status),
				To:       string(domain.OrderStatusCancelled),
			}
		}
		now := s.opts.now()
		o.Status = domain.OrderStatusCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now
		if reason != "" {
			if o.Notes != "" {
				o.Notes += "\n"
			}
			o.Notes += "Cancelled: " + reason
		}
		for _, ref := range o.SupplierOrders {
			if !ref.Status.IsTerminal() {
				live = append(live, ref)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
		zap.Int("supplier_orders_to_cancel", len(live)),
	)

	if len(live) == 0 {
		return updated, nil
	}
	s.cancelAtSuppliers(ctx, orderID, live)
	return s.repos.Orders.Get(ctx, orderID)
}

func profitOf(o *domain.Order) orderProfit {
	cost := decimal.Zero
	for _, item := range o.Items {
		cost = cost.Add(item.TotalCost)
	}
	for _, ref := range o.SupplierOrders {
		cost = cost.Add(ref.ShippingCost)
	}
	profit := o.Total.Sub(cost)
	return orderProfit{
		revenue: o.Total,
		cost:    cost,
		profit:  profit,
		margin:  MarginPercent(o.Total, cost),
	}
}

// CalculateOrderProfit reports revenue, supplier cost and margin of an order.
// The margin is zero for a zero-total order.
func CalculateOrderProfit(o *domain.Order) ProfitReport {
	return profitOf(o).report(o.ID)
}

// Profit loads an order and reports its profit
func (s *OrderService) Profit(ctx context.Context, orderID string) (*ProfitReport, error) {
	o, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	report := CalculateOrderProfit(o)
	return &report, nil
}

// GetOrder returns one order
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repos.Orders.Get(ctx, orderID)
}

// ListOrders returns orders newest first, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	if status != "" && !status.IsValid() {
		verr := &errors.ErrValidation{}
		verr.Add("status", "is not a valid order status")
		return nil, verr
	}
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, err
	}
	if status != "" {
		orders = repository.Filter(orders, func(o *domain.Order) bool { return o.Status == status })
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// RefreshOpenOrders re-polls every processing order and returns how many were refreshed
func (s *OrderService) RefreshOpenOrders(ctx context.Context) (int, error) {
	orders, err := s.ListOrders(ctx, domain.OrderStatusProcessing)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.UpdateFulfillmentStatus(ctx, o.ID); err != nil {
			s.logger.Warn("Fulfillment refresh failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
