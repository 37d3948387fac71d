package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// twoSupplierOrder imports a phone from sup-001 and a jacket from sup-002
func twoSupplierOrder(t *testing.T, f *fixture, reversed bool) CreateOrderRequest {
	t.Helper()
	phone := f.importProduct(t, "sup-001", "prod-001")
	jacket := f.importProduct(t, "sup-002", "prod-003")
	items := []OrderItemRequest{
		{ProductID: phone.ID, VariantID: variantBySupplierID(t, phone, "var-001").ID, Quantity: 1},
		{ProductID: jacket.ID, VariantID: variantBySupplierID(t, jacket, "var-009").ID, Quantity: 3},
	}
	if reversed {
		items[0], items[1] = items[1], items[0]
	}
	return CreateOrderRequest{
		CustomerID:      "cust-001",
		CustomerEmail:   "ada@example.com",
		ShippingAddress: usAddress(),
		Items:           items,
		PaymentMethod:   "card",
	}
}

func TestCreateOrderComputesTotalsAndDispatches(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	checks := map[string]struct{ got, want decimal.Decimal }{
		"subtotal": {order.Subtotal, d("733")},
		"shipping": {order.ShippingCost, d("10.85")},
		"total":    {order.Total, d("743.85")},
	}
	for name, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", name, c.got, c.want)
		}
	}
	if !order.Total.Equal(order.Subtotal.Add(order.ShippingCost).Add(order.TaxAmount).Sub(order.DiscountAmount)) {
		t.Fatalf("total does not add up: %+v", order)
	}

	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected auto-accepted order to be processing, got %s", order.Status)
	}
	if len(order.SupplierOrders) != 2 {
		t.Fatalf("expected 2 supplier orders, got %d", len(order.SupplierOrders))
	}
	if order.SupplierOrders[0].SupplierID != "sup-001" || order.SupplierOrders[1].SupplierID != "sup-002" {
		t.Fatalf("references out of group order: %s, %s", order.SupplierOrders[0].SupplierID, order.SupplierOrders[1].SupplierID)
	}
	if order.SupplierOrders[0].SupplierName != "Global Gadgets Supply" {
		t.Fatalf("unexpected supplier name %q", order.SupplierOrders[0].SupplierName)
	}
	if order.OrderNumber == "" || order.ProcessedAt == nil {
		t.Fatalf("expected order number and processed time, got %+v", order)
	}
}

func TestProcessOrderGroupsBySupplierRegardlessOfItemOrder(t *testing.T) {
	for _, reversed := range []bool{false, true} {
		f := newFixture(t)
		f.setAutoAccept(t, false)
		order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, reversed))
		if err != nil {
			t.Fatal(err)
		}
		if order.Status != domain.OrderStatusPending || len(order.SupplierOrders) != 0 {
			t.Fatalf("expected untouched pending order, got %s with %d refs", order.Status, len(order.SupplierOrders))
		}

		processed, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID)
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if len(processed.SupplierOrders) != 2 {
			t.Fatalf("expected 2 references, got %d", len(processed.SupplierOrders))
		}
		for _, ref := range processed.SupplierOrders {
			if len(ref.Items) != 1 {
				t.Fatalf("expected one item per supplier, got %+v", ref.Items)
			}
			item, ok := processed.Item(ref.Items[0].OrderItemID)
			if !ok || item.SupplierID != ref.SupplierID {
				t.Fatalf("item %s routed to wrong supplier %s", ref.Items[0].OrderItemID, ref.SupplierID)
			}
		}
		first := "sup-001"
		if reversed {
			first = "sup-002"
		}
		if processed.SupplierOrders[0].SupplierID != first {
			t.Fatalf("expected %s first, got %s", first, processed.SupplierOrders[0].SupplierID)
		}
	}
}

func TestProcessOrderPartialFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}

	f.sim.SetOutage("sup-002", true)
	processed, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID)
	partial, ok := errors.AsPartialDispatch(err)
	if !ok {
		t.Fatalf("expected partial dispatch, got %v", err)
	}
	if len(partial.Succeeded) != 1 || partial.Succeeded[0] != "sup-001" {
		t.Fatalf("unexpected succeeded groups %v", partial.Succeeded)
	}
	if len(partial.Failed) != 1 || partial.Failed[0].SupplierID != "sup-002" || !partial.Failed[0].Retryable {
		t.Fatalf("unexpected failed groups %+v", partial.Failed)
	}
	if processed.Status != domain.OrderStatusProcessing || len(processed.SupplierOrders) != 1 {
		t.Fatalf("expected processing order with one reference, got %s / %d", processed.Status, len(processed.SupplierOrders))
	}
	if len(processed.FailedSupplierIDs) != 1 || processed.FailedSupplierIDs[0] != "sup-002" {
		t.Fatalf("expected sup-002 recorded as failed, got %v", processed.FailedSupplierIDs)
	}

	f.sim.SetOutage("sup-002", false)
	retried, err := f.svc.Orders.RetryFailedGroups(f.ctx, order.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(retried.SupplierOrders) != 2 || len(retried.FailedSupplierIDs) != 0 {
		t.Fatalf("expected both groups placed after retry, got %d refs, failed %v", len(retried.SupplierOrders), retried.FailedSupplierIDs)
	}

	if _, err := f.svc.Orders.RetryFailedGroups(f.ctx, order.ID); !errors.IsInvalidState(err) {
		t.Fatalf("expected nothing left to retry, got %v", err)
	}
}

func TestFulfillmentWaitsForFailedGroups(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}

	f.sim.SetOutage("sup-002", true)
	if _, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID); err == nil {
		t.Fatal("expected partial dispatch")
	}

	// the placed group is delivered while sup-002 was never ordered
	f.clock.Advance(8 * 24 * time.Hour)
	got, err := f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusProcessing || got.FulfillmentStatus != domain.FulfillmentPartiallyFulfilled {
		t.Fatalf("expected processing/partially_fulfilled with a failed group, got %s/%s", got.Status, got.FulfillmentStatus)
	}
	if got.CompletedAt != nil {
		t.Fatal("order completed with an unplaced group")
	}

	f.sim.SetOutage("sup-002", false)
	retried, err := f.svc.Orders.RetryFailedGroups(f.ctx, order.ID)
	if err != nil {
		t.Fatalf("retry after delivery of the first group: %v", err)
	}
	if len(retried.SupplierOrders) != 2 || len(retried.FailedSupplierIDs) != 0 {
		t.Fatalf("expected both groups placed, got %d refs, failed %v", len(retried.SupplierOrders), retried.FailedSupplierIDs)
	}

	f.clock.Advance(4 * 24 * time.Hour)
	got, err = f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusCompleted || got.FulfillmentStatus != domain.FulfillmentFulfilled {
		t.Fatalf("expected completed once every group shipped, got %s/%s", got.Status, got.FulfillmentStatus)
	}
}

func TestProcessOrderAllGroupsFailReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	phone := f.importProduct(t, "sup-001", "prod-001")
	order, err := f.svc.Orders.CreateOrder(f.ctx, CreateOrderRequest{
		CustomerEmail:   "ada@example.com",
		ShippingAddress: usAddress(),
		Items:           []OrderItemRequest{{ProductID: phone.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	f.sim.SetOutage("sup-001", true)
	processed, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID)
	if !errors.IsSupplierUnavailable(err) || !errors.IsRetryable(err) {
		t.Fatalf("expected retryable supplier failure, got %v", err)
	}
	if processed.Status != domain.OrderStatusPending || processed.ProcessedAt != nil || len(processed.SupplierOrders) != 0 {
		t.Fatalf("expected claim released, got %s processed=%v refs=%d", processed.Status, processed.ProcessedAt, len(processed.SupplierOrders))
	}

	f.sim.SetOutage("sup-001", false)
	processed, err = f.svc.Orders.ProcessOrder(f.ctx, order.ID)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if processed.Status != domain.OrderStatusProcessing || len(processed.SupplierOrders) != 1 {
		t.Fatalf("expected processed order, got %s", processed.Status)
	}
	if len(processed.FailedSupplierIDs) != 0 {
		t.Fatalf("expected recovered supplier cleared from failures, got %v", processed.FailedSupplierIDs)
	}
}

func TestProcessOrderTwiceIsInvalidState(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID); !errors.IsInvalidState(err) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestConcurrentProcessClaimsOnce(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}
	got, _ := f.svc.Orders.GetOrder(f.ctx, order.ID)
	if len(got.SupplierOrders) != 2 {
		t.Fatalf("expected 2 references, got %d", len(got.SupplierOrders))
	}
}

func TestUpdateFulfillmentStatusPromotesToCompleted(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(2 * 24 * time.Hour)
	got, err := f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusProcessing || got.FulfillmentStatus != domain.FulfillmentUnfulfilled {
		t.Fatalf("expected processing/unfulfilled at 2 days, got %s/%s", got.Status, got.FulfillmentStatus)
	}

	f.clock.Advance(2 * 24 * time.Hour)
	got, err = f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FulfillmentStatus != domain.FulfillmentFulfilled || got.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed/fulfilled once shipped, got %s/%s", got.Status, got.FulfillmentStatus)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completion time")
	}
	for _, ref := range got.SupplierOrders {
		if ref.TrackingNumber == "" {
			t.Fatalf("expected tracking on shipped reference %s", ref.ID)
		}
	}
	for _, item := range got.Items {
		if item.FulfillmentStatus != domain.FulfillmentFulfilled {
			t.Fatalf("expected item %s fulfilled, got %s", item.ID, item.FulfillmentStatus)
		}
	}
}

func TestUpdateFulfillmentStatusWithoutReferencesIsNoop(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil || got.Status != domain.OrderStatusPending || !got.UpdatedAt.Equal(order.UpdatedAt) {
		t.Fatalf("expected untouched order, got %+v err %v", got, err)
	}
}

func TestCancelCompletedOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(8 * 24 * time.Hour)
	if _, err := f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Orders.CancelOrder(f.ctx, order.ID, "changed my mind"); !errors.IsAlreadyCompleted(err) {
		t.Fatalf("expected already completed, got %v", err)
	}
	got, _ := f.svc.Orders.GetOrder(f.ctx, order.ID)
	if got.Status != domain.OrderStatusCompleted || got.CancelledAt != nil {
		t.Fatalf("completed order was modified: %s", got.Status)
	}
}

func TestCancelProcessingOrderCancelsAtSuppliers(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := f.svc.Orders.CancelOrder(f.ctx, order.ID, "customer request")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled order, got %s", cancelled.Status)
	}
	for _, ref := range cancelled.SupplierOrders {
		if ref.Status != domain.SupplierOrderCancelled {
			t.Fatalf("expected reference %s cancelled, got %s", ref.ID, ref.Status)
		}
	}
	phone, _ := f.repos.SupplierProducts.Get(f.ctx, "prod-001")
	if phone.InventoryCount != 375 {
		t.Fatalf("expected supplier stock restored, got %d", phone.InventoryCount)
	}

	// a cancelled order is never promoted by later polls
	f.clock.Advance(8 * 24 * time.Hour)
	got, err := f.svc.Orders.UpdateFulfillmentStatus(f.ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusCancelled {
		t.Fatalf("cancelled order changed to %s", got.Status)
	}

	if _, err := f.svc.Orders.CancelOrder(f.ctx, order.ID, ""); !errors.IsInvalidState(err) {
		t.Fatalf("expected invalid state on second cancel, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	phone := f.importProduct(t, "sup-001", "prod-001")

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"no items", CreateOrderRequest{CustomerEmail: "a@b.c", ShippingAddress: usAddress()}},
		{"no email", CreateOrderRequest{ShippingAddress: usAddress(), Items: []OrderItemRequest{{ProductID: phone.ID, Quantity: 1}}}},
		{"zero quantity", CreateOrderRequest{CustomerEmail: "a@b.c", ShippingAddress: usAddress(), Items: []OrderItemRequest{{ProductID: phone.ID}}}},
		{"unknown product", CreateOrderRequest{CustomerEmail: "a@b.c", ShippingAddress: usAddress(), Items: []OrderItemRequest{{ProductID: "nope", Quantity: 1}}}},
		{"unknown variant", CreateOrderRequest{CustomerEmail: "a@b.c", ShippingAddress: usAddress(), Items: []OrderItemRequest{{ProductID: phone.ID, VariantID: "nope", Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Orders.CreateOrder(f.ctx, tt.req); !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	orders, _ := f.svc.Orders.ListOrders(f.ctx, "")
	if len(orders) != 0 {
		t.Fatalf("rejected requests must not store orders, found %d", len(orders))
	}
}

func TestCreateOrderUnsupportedDestination(t *testing.T) {
	f := newFixture(t)
	phone := f.importProduct(t, "sup-001", "prod-001")
	addr := usAddress()
	addr.Country = "JP"

	_, err := f.svc.Orders.CreateOrder(f.ctx, CreateOrderRequest{
		CustomerEmail:   "ada@example.com",
		ShippingAddress: addr,
		Items:           []OrderItemRequest{{ProductID: phone.ID, Quantity: 1}},
	})
	if !errors.IsUnsupportedDestination(err) {
		t.Fatalf("expected unsupported destination, got %v", err)
	}
	orders, _ := f.svc.Orders.ListOrders(f.ctx, "")
	if len(orders) != 0 {
		t.Fatal("no order should be stored")
	}
}

func TestCreateOrderAppliesDiscountCode(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	req := twoSupplierOrder(t, f, false)
	req.DiscountCode = "welcome10"

	order, err := f.svc.Orders.CreateOrder(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !order.DiscountAmount.Equal(d("73.3")) {
		t.Fatalf("expected 10%% of 733, got %s", order.DiscountAmount)
	}
	if !order.Total.Equal(d("670.55")) {
		t.Fatalf("unexpected total %s", order.Total)
	}
	if len(order.DiscountCodes) != 1 || order.DiscountCodes[0] != "WELCOME10" {
		t.Fatalf("unexpected discount codes %v", order.DiscountCodes)
	}

	// WELCOME10 is limited to one use per customer
	if _, err := f.svc.Orders.CreateOrder(f.ctx, req); err == nil {
		t.Fatal("expected second redemption by the same customer to fail")
	} else if rejected, ok := errors.AsDiscountRejected(err); !ok || rejected.Reason != reasonCustomerLimit {
		t.Fatalf("expected customer limit rejection, got %v", err)
	}
}

func TestCreateOrderAddsTaxWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	if _, err := f.svc.Settings.UpdateTax(f.ctx, domain.TaxSettings{ApplyTax: true, TaxRate: d("10")}); err != nil {
		t.Fatal(err)
	}
	phone := f.importProduct(t, "sup-001", "prod-001")
	order, err := f.svc.Orders.CreateOrder(f.ctx, CreateOrderRequest{
		CustomerEmail:   "ada@example.com",
		ShippingAddress: usAddress(),
		Items:           []OrderItemRequest{{ProductID: phone.ID, VariantID: variantBySupplierID(t, phone, "var-001").ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !order.TaxAmount.Equal(d("49")) || !order.Total.Equal(d("544.25")) {
		t.Fatalf("unexpected tax %s total %s", order.TaxAmount, order.Total)
	}
}

func TestCalculateOrderProfit(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}
	report := CalculateOrderProfit(order)
	// 743.85 - (350 + 3×45 + 5.25 + 5.60)
	if !report.Profit.Equal(d("248")) {
		t.Fatalf("unexpected profit %s", report.Profit)
	}
	if !report.Cost.Equal(d("495.85")) {
		t.Fatalf("unexpected cost %s", report.Cost)
	}
}

func TestCalculateOrderProfitZeroTotal(t *testing.T) {
	order := &domain.Order{
		ID:    "free",
		Total: decimal.Zero,
		Items: []domain.OrderItem{{TotalCost: d("12.50")}},
	}
	report := CalculateOrderProfit(order)
	if !report.ProfitMargin.IsZero() {
		t.Fatalf("expected zero margin for zero revenue, got %s", report.ProfitMargin)
	}
	if !report.Profit.Equal(d("-12.5")) {
		t.Fatalf("unexpected profit %s", report.Profit)
	}
}

// stallingGateway blocks PlaceOrder until the call's context is done
type stallingGateway struct {
	supplier.Gateway
}

func (g stallingGateway) PlaceOrder(ctx context.Context, _ supplier.PlaceOrderRequest) (*domain.SupplierOrder, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSupplierTimeoutIsRetryable(t *testing.T) {
	base := newFixture(t)
	f := newFixtureWithGateway(t, base.ctx, base.repos, base.clock, stallingGateway{base.sim}, WithCallTimeout(20*time.Millisecond))
	f.setAutoAccept(t, false)
	phone := f.importProduct(t, "sup-001", "prod-001")
	order, err := f.svc.Orders.CreateOrder(f.ctx, CreateOrderRequest{
		CustomerEmail:   "ada@example.com",
		ShippingAddress: usAddress(),
		Items:           []OrderItemRequest{{ProductID: phone.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	processed, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID)
	if !errors.IsRetryable(err) {
		t.Fatalf("expected retryable timeout, got %v", err)
	}
	if processed.Status != domain.OrderStatusPending {
		t.Fatalf("expected claim released after timeout, got %s", processed.Status)
	}
}

// gatedGateway holds PlaceOrder until released so a cancel can land mid-dispatch
type gatedGateway struct {
	supplier.Gateway
	entered chan struct{}
	release chan struct{}
}

func (g gatedGateway) PlaceOrder(ctx context.Context, req supplier.PlaceOrderRequest) (*domain.SupplierOrder, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Gateway.PlaceOrder(ctx, req)
}

func TestCancelDuringDispatchWins(t *testing.T) {
	base := newFixture(t)
	gw := gatedGateway{Gateway: base.sim, entered: make(chan struct{}, 1), release: make(chan struct{})}
	f := newFixtureWithGateway(t, base.ctx, base.repos, base.clock, gw)
	f.setAutoAccept(t, false)
	phone := f.importProduct(t, "sup-001", "prod-001")
	order, err := f.svc.Orders.CreateOrder(f.ctx, CreateOrderRequest{
		CustomerEmail:   "ada@example.com",
		ShippingAddress: usAddress(),
		Items:           []OrderItemRequest{{ProductID: phone.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Orders.ProcessOrder(f.ctx, order.ID)
		done <- err
	}()

	<-gw.entered
	if _, err := f.svc.Orders.CancelOrder(f.ctx, order.ID, "too slow"); err != nil {
		t.Fatalf("cancel during dispatch: %v", err)
	}
	close(gw.release)

	if err := <-done; !errors.IsInvalidState(err) {
		t.Fatalf("expected process to report the cancel, got %v", err)
	}
	got, _ := f.svc.Orders.GetOrder(f.ctx, order.ID)
	if got.Status != domain.OrderStatusCancelled {
		t.Fatalf("cancel must win, got %s", got.Status)
	}
	if len(got.SupplierOrders) != 1 || got.SupplierOrders[0].Status != domain.SupplierOrderCancelled {
		t.Fatalf("late supplier order must be cancelled, got %+v", got.SupplierOrders)
	}
	stock, _ := f.repos.SupplierProducts.Get(f.ctx, "prod-001")
	if stock.InventoryCount != 375 {
		t.Fatalf("expected stock restored, got %d", stock.InventoryCount)
	}
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.setAutoAccept(t, false)
	req := twoSupplierOrder(t, f, false)
	first, _ := f.svc.Orders.CreateOrder(f.ctx, req)
	f.clock.Advance(time.Minute)
	second, _ := f.svc.Orders.CreateOrder(f.ctx, req)
	if _, err := f.svc.Orders.ProcessOrder(f.ctx, second.ID); err != nil {
		t.Fatal(err)
	}

	all, _ := f.svc.Orders.ListOrders(f.ctx, "")
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %d orders", len(all))
	}
	pending, _ := f.svc.Orders.ListOrders(f.ctx, domain.OrderStatusPending)
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("unexpected pending orders %v", pending)
	}
	if _, err := f.svc.Orders.ListOrders(f.ctx, "shipped-ish"); !errors.IsValidation(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
}

func TestRefreshOpenOrders(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Orders.CreateOrder(f.ctx, twoSupplierOrder(t, f, false))
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5 * 24 * time.Hour)

	n, err := f.svc.Orders.RefreshOpenOrders(f.ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 refreshed order, got %d %v", n, err)
	}
	got, _ := f.svc.Orders.GetOrder(f.ctx, order.ID)
	if got.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed after refresh, got %s", got.Status)
	}
}

func TestQuoteShipping(t *testing.T) {
	f := newFixture(t)
	quote, err := f.svc.Orders.QuoteShipping(f.ctx, ShippingQuoteRequest{
		SupplierID: "sup-002",
		ProductIDs: []string{"prod-003"},
		Country:    "IT",
	})
	if err != nil {
		t.Fatal(err)
	}
	if quote.String() != "5.60" {
		t.Fatalf("unexpected quote %s", quote)
	}
}

// rejectingOrders fails every insert
type rejectingOrders struct {
	repository.Store[*domain.Order]
}

func (rejectingOrders) Create(_ context.Context, o *domain.Order) error {
	return &errors.ErrConflict{Resource: "order", ID: o.ID}
}

func TestCreateOrderReleasesDiscountWhenStoreFails(t *testing.T) {
	f := springFixture(t)
	f.setAutoAccept(t, false)
	req := twoSupplierOrder(t, f, false)
	req.DiscountCode = "SPRING30"

	broken := *f.repos
	broken.Orders = rejectingOrders{f.repos.Orders}
	svc := New(Deps{Repos: &broken, Gateway: f.sim, Logger: zap.NewNop()}, WithClock(f.clock.Now))
	if _, err := svc.Orders.CreateOrder(f.ctx, req); !errors.IsConflict(err) {
		t.Fatalf("expected the insert failure, got %v", err)
	}

	dc, _ := f.repos.Discounts.Get(f.ctx, "discount-002")
	if dc.UsageCount != 220 || dc.CustomerUsage["cust-001"] != 0 {
		t.Fatalf("redemption must be handed back, usage %d customer %d", dc.UsageCount, dc.CustomerUsage["cust-001"])
	}

	order, err := f.svc.Orders.CreateOrder(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if order.DiscountAmount.IsZero() {
		t.Fatal("expected the discount on the stored order")
	}
	dc, _ = f.repos.Discounts.Get(f.ctx, "discount-002")
	if dc.UsageCount != 221 || dc.CustomerUsage["cust-001"] != 1 {
		t.Fatalf("expected one redemption, usage %d customer %d", dc.UsageCount, dc.CustomerUsage["cust-001"])
	}
}
