package domain

import (
	"math/rand"
	"testing"
)

var allSupplierStatuses = []SupplierOrderStatus{
	SupplierOrderPending,
	SupplierOrderProcessing,
	SupplierOrderShipped,
	SupplierOrderDelivered,
	SupplierOrderCancelled,
}

func referenceAggregate(statuses []SupplierOrderStatus) FulfillmentStatus {
	if len(statuses) == 0 {
		return FulfillmentUnfulfilled
	}
	delivered, transit := 0, 0
	for _, s := range statuses {
		if s == SupplierOrderDelivered {
			delivered++
		}
		if s == SupplierOrderShipped || s == SupplierOrderDelivered {
			transit++
		}
	}
	if delivered == len(statuses) || transit == len(statuses) {
		return FulfillmentFulfilled
	}
	if transit > 0 {
		return FulfillmentPartiallyFulfilled
	}
	return FulfillmentUnfulfilled
}

func TestAggregateFulfillmentRandomTuples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		n := 1 + rng.Intn(6)
		statuses := make([]SupplierOrderStatus, n)
		for j := range statuses {
			statuses[j] = allSupplierStatuses[rng.Intn(len(allSupplierStatuses))]
		}
		got := AggregateFulfillment(statuses)
		want := referenceAggregate(statuses)
		if got != want {
			t.Fatalf("statuses %v: expected %s, got %s", statuses, want, got)
		}
		// order of references must not matter
		rng.Shuffle(len(statuses), func(a, b int) { statuses[a], statuses[b] = statuses[b], statuses[a] })
		if again := AggregateFulfillment(statuses); again != got {
			t.Fatalf("aggregation depends on order: %s vs %s", again, got)
		}
	}
}

func TestAggregateFulfillmentCases(t *testing.T) {
	cases := []struct {
		name     string
		statuses []SupplierOrderStatus
		want     FulfillmentStatus
	}{
		{"empty", nil, FulfillmentUnfulfilled},
		{"all delivered", []SupplierOrderStatus{SupplierOrderDelivered, SupplierOrderDelivered}, FulfillmentFulfilled},
		{"all shipped", []SupplierOrderStatus{SupplierOrderShipped, SupplierOrderShipped}, FulfillmentFulfilled},
		{"shipped and delivered", []SupplierOrderStatus{SupplierOrderShipped, SupplierOrderDelivered}, FulfillmentFulfilled},
		{"one shipped", []SupplierOrderStatus{SupplierOrderShipped, SupplierOrderPending}, FulfillmentPartiallyFulfilled},
		{"delivered and cancelled", []SupplierOrderStatus{SupplierOrderDelivered, SupplierOrderCancelled}, FulfillmentPartiallyFulfilled},
		{"nothing moved", []SupplierOrderStatus{SupplierOrderPending, SupplierOrderProcessing}, FulfillmentUnfulfilled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AggregateFulfillment(tc.statuses); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	if !OrderStatusPending.CanTransitionTo(OrderStatusProcessing) {
		t.Fatalf("pending should move to processing")
	}
	if !OrderStatusPaymentPending.CanTransitionTo(OrderStatusProcessing) {
		t.Fatalf("payment_pending should move to processing")
	}
	if OrderStatusCompleted.CanTransitionTo(OrderStatusCancelled) {
		t.Fatalf("completed must not be cancellable")
	}
	if OrderStatusCancelled.CanTransitionTo(OrderStatusCompleted) {
		t.Fatalf("cancelled is terminal")
	}
	if OrderStatusProcessing.CanTransitionTo(OrderStatusPending) {
		t.Fatalf("processing must not go back to pending")
	}
}
