package domain

// OrderStatus represents the lifecycle status of a customer order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusOnHold         OrderStatus = "on_hold"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
	OrderStatusFailed         OrderStatus = "failed"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPaymentPending,
		OrderStatusProcessing,
		OrderStatusOnHold,
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusFailed:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the order still has work outstanding
func (s OrderStatus) IsOpen() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return false
	default:
		return true
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentPending:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusOnHold ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusFailed
	case OrderStatusOnHold:
		return newStatus == OrderStatusPending ||
			newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCancelled
	case OrderStatusProcessing:
		return newStatus == OrderStatusCompleted ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusFailed
	case OrderStatusCompleted:
		return newStatus == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return false // Terminal states
	default:
		return false
	}
}

// FulfillmentStatus is the aggregate shipping state of an order across its supplier sub-orders
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled        FulfillmentStatus = "unfulfilled"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "partially_fulfilled"
	FulfillmentFulfilled          FulfillmentStatus = "fulfilled"
	FulfillmentRestocked          FulfillmentStatus = "restocked"
)

// SupplierOrderStatus is the status of a sub-order placed with one supplier
type SupplierOrderStatus string

const (
	SupplierOrderPending    SupplierOrderStatus = "pending"
	SupplierOrderProcessing SupplierOrderStatus = "processing"
	SupplierOrderShipped    SupplierOrderStatus = "shipped"
	SupplierOrderDelivered  SupplierOrderStatus = "delivered"
	SupplierOrderCancelled  SupplierOrderStatus = "cancelled"
)

// IsValid checks if the supplier order status is valid
func (s SupplierOrderStatus) IsValid() bool {
	switch s {
	case SupplierOrderPending,
		SupplierOrderProcessing,
		SupplierOrderShipped,
		SupplierOrderDelivered,
		SupplierOrderCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the supplier will not move the sub-order any further
func (s SupplierOrderStatus) IsTerminal() bool {
	return s == SupplierOrderDelivered || s == SupplierOrderCancelled
}

// InTransit reports whether goods have left the supplier
func (s SupplierOrderStatus) InTransit() bool {
	return s == SupplierOrderShipped || s == SupplierOrderDelivered
}

// PaymentStatus of the order's payment sub-record
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// DiscountType determines how a discount value is applied
type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixed        DiscountType = "fixed"
	DiscountFreeShipping DiscountType = "free_shipping"
)

// IsValid checks if the discount type is valid
func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed, DiscountFreeShipping:
		return true
	default:
		return false
	}
}

// DiscountScope determines which cart products a discount targets
type DiscountScope string

const (
	ScopeEntireOrder DiscountScope = "entire_order"
	ScopeProducts    DiscountScope = "products"
	ScopeCollections DiscountScope = "collections"
)

// IsValid checks if the discount scope is valid
func (s DiscountScope) IsValid() bool {
	return s == ScopeEntireOrder || s == ScopeProducts || s == ScopeCollections
}

// ProductStatus is the publication state of a store product
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

// IsValid checks if the product status is valid
func (s ProductStatus) IsValid() bool {
	return s == ProductActive || s == ProductDraft || s == ProductArchived
}

// OrderSource records where an order was placed
type OrderSource string

const (
	SourceWebsite     OrderSource = "website"
	SourceMobile      OrderSource = "mobile"
	SourceMarketplace OrderSource = "marketplace"
	SourceManual      OrderSource = "manual"
)

// IsValid checks if the order source is valid
func (s OrderSource) IsValid() bool {
	switch s {
	case SourceWebsite, SourceMobile, SourceMarketplace, SourceManual:
		return true
	default:
		return false
	}
}

// CampaignType is the channel a marketing campaign goes out on
type CampaignType string

const (
	CampaignEmail         CampaignType = "email"
	CampaignSMS           CampaignType = "sms"
	CampaignSocial        CampaignType = "social"
	CampaignAbandonedCart CampaignType = "abandoned_cart"
	CampaignRetargeting   CampaignType = "retargeting"
)

// IsValid checks if the campaign type is valid
func (t CampaignType) IsValid() bool {
	switch t {
	case CampaignEmail, CampaignSMS, CampaignSocial, CampaignAbandonedCart, CampaignRetargeting:
		return true
	default:
		return false
	}
}

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// IsValid checks if the campaign status is valid
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignActive, CampaignCompleted, CampaignCancelled:
		return true
	default:
		return false
	}
}

// CanExecute reports whether a campaign in this state may be sent
func (s CampaignStatus) CanExecute() bool {
	return s == CampaignDraft || s == CampaignScheduled
}

// CanTransitionTo checks if a campaign status change is valid
func (s CampaignStatus) CanTransitionTo(newStatus CampaignStatus) bool {
	switch s {
	case CampaignDraft:
		return newStatus == CampaignScheduled || newStatus == CampaignActive || newStatus == CampaignCancelled
	case CampaignScheduled:
		return newStatus == CampaignDraft || newStatus == CampaignActive || newStatus == CampaignCancelled
	case CampaignActive:
		return newStatus == CampaignCompleted || newStatus == CampaignCancelled
	default:
		return false
	}
}

// CampaignAudience selects who a campaign is sent to
type CampaignAudience string

const (
	AudienceAll       CampaignAudience = "all"
	AudienceCustomers CampaignAudience = "specific_customers"
)

// IsValid checks if the audience is valid
func (a CampaignAudience) IsValid() bool {
	return a == AudienceAll || a == AudienceCustomers
}
