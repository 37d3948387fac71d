package domain

// AggregateFulfillment derives an order's fulfillment status from the statuses of
// its supplier sub-orders. An order with no sub-orders is unfulfilled.
//
// Priority: all delivered, then all shipped or delivered (both fulfilled), then any
// shipped or delivered (partially fulfilled), else unfulfilled.
func AggregateFulfillment(statuses []SupplierOrderStatus) FulfillmentStatus {
	if len(statuses) == 0 {
		return FulfillmentUnfulfilled
	}
	allDelivered := true
	allInTransit := true
	anyInTransit := false
	for _, s := range statuses {
		if s != SupplierOrderDelivered {
			allDelivered = false
		}
		if s.InTransit() {
			anyInTransit = true
		} else {
			allInTransit = false
		}
	}
	switch {
	case allDelivered:
		return FulfillmentFulfilled
	case allInTransit:
		// shipped counts as fulfilled here, matching the storefront's behavior
		return FulfillmentFulfilled
	case anyInTransit:
		return FulfillmentPartiallyFulfilled
	default:
		return FulfillmentUnfulfilled
	}
}

// ReferenceStatuses collects the status of every supplier reference on an order
func (o *Order) ReferenceStatuses() []SupplierOrderStatus {
	out := make([]SupplierOrderStatus, 0, len(o.SupplierOrders))
	for _, ref := range o.SupplierOrders {
		out = append(out, ref.Status)
	}
	return out
}
