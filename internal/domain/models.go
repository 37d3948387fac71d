package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a dropshipping supplier in the simulated network
type Supplier struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	ContactEmail        string          `json:"contact_email,omitempty"`
	ShippingCountries   []string        `json:"shipping_countries"`
	AverageShippingDays int             `json:"average_shipping_days"`
	ProcessingDays      int             `json:"processing_days"`
	ReliabilityScore    int             `json:"reliability_score"`
	ProductCategories   []string        `json:"product_categories"`
	MinimumOrderValue   decimal.Decimal `json:"minimum_order_value"`
	HasAutomatedAPI     bool            `json:"has_automated_api"`
	Active              bool            `json:"active"`
}

// ShipsTo reports whether the supplier ships to a country code
func (s *Supplier) ShipsTo(country string) bool {
	for _, c := range s.ShippingCountries {
		if c == country {
			return true
		}
	}
	return false
}

// Dimensions of a shipped parcel
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   string          `json:"unit"`
}

// ProductVariant is one purchasable variant of a supplier product
type ProductVariant struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	SKU             string            `json:"sku"`
	AdditionalPrice decimal.Decimal   `json:"additional_price"`
	InventoryCount  int               `json:"inventory_count"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// SupplierProduct is a product definition owned by a supplier
type SupplierProduct struct {
	ID               string            `json:"id"`
	SupplierID       string            `json:"supplier_id"`
	SKU              string            `json:"sku"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	BasePrice        decimal.Decimal   `json:"base_price"`
	Currency         string            `json:"currency"`
	Categories       []string          `json:"categories"`
	Variants         []ProductVariant  `json:"variants"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	InventoryCount   int               `json:"inventory_count"`
	MinOrderQuantity int               `json:"min_order_quantity"`
	ShippingWeight   decimal.Decimal   `json:"shipping_weight"`
	Dimensions       Dimensions        `json:"dimensions"`
	IsAvailable      bool              `json:"is_available"`
}

// Variant finds a variant by id
func (p *SupplierProduct) Variant(id string) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// StoreProductVariant mirrors one supplier variant with its own price
type StoreProductVariant struct {
	ID                string            `json:"id"`
	SupplierVariantID string            `json:"supplier_variant_id"`
	Title             string            `json:"title"`
	SKU               string            `json:"sku"`
	Price             decimal.Decimal   `json:"price"`
	CostPrice         decimal.Decimal   `json:"cost_price"`
	InventoryQuantity int               `json:"inventory_quantity"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// StoreProduct is a store listing derived from exactly one supplier product
type StoreProduct struct {
	ID                        string                `json:"id"`
	OriginalSupplierProductID string                `json:"original_supplier_product_id"`
	SupplierID                string                `json:"supplier_id"`
	Title                     string                `json:"title"`
	Description               string                `json:"description,omitempty"`
	Price                     decimal.Decimal       `json:"price"`
	CostPrice                 decimal.Decimal       `json:"cost_price"`
	MarkupPercentage          decimal.Decimal       `json:"markup_percentage"`
	SKU                       string                `json:"sku"`
	Weight                    decimal.Decimal       `json:"weight"`
	Dimensions                Dimensions            `json:"dimensions"`
	Categories                []string              `json:"categories"`
	Tags                      []string              `json:"tags"`
	Variants                  []StoreProductVariant `json:"variants"`
	Attributes                map[string]string     `json:"attributes,omitempty"`
	Status                    ProductStatus         `json:"status"`
	Vendor                    string                `json:"vendor"`
	InventoryTracking         bool                  `json:"inventory_tracking"`
	InventoryQuantity         int                   `json:"inventory_quantity"`
	LowStockThreshold         int                   `json:"low_stock_threshold"`
	SEOHandle                 string                `json:"seo_handle"`
	Taxable                   bool                  `json:"taxable"`
	CreatedAt                 time.Time             `json:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at"`
}

// MarkupSettings is the three-tier markup override policy of the store
type MarkupSettings struct {
	DefaultMarkupPercentage decimal.Decimal            `json:"default_markup_percentage"`
	CategoryMarkups         map[string]decimal.Decimal `json:"category_markups"`
	SupplierMarkups         map[string]decimal.Decimal `json:"supplier_markups"`
}

// AutomationSettings toggles automatic pipeline behavior
type AutomationSettings struct {
	AutoAcceptOrders    bool `json:"auto_accept_orders"`
	AutoUpdateInventory bool `json:"auto_update_inventory"`
	LowStockThreshold   int  `json:"low_stock_threshold"`
}

// TaxSettings of the store
type TaxSettings struct {
	ApplyTax    bool            `json:"apply_tax"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxIncluded bool            `json:"tax_included"`
}

// StoreSettings is the single settings record of the store
type StoreSettings struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Currency   string             `json:"currency"`
	Markup     MarkupSettings     `json:"markup"`
	Automation AutomationSettings `json:"automation"`
	Tax        TaxSettings        `json:"tax"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Address is a billing or shipping address
type Address struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// FullName joins first and last name
func (a Address) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// PaymentInfo is the payment sub-record of an order
type PaymentInfo struct {
	Method        string          `json:"method"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// OrderItem is one line of a customer order
type OrderItem struct {
	ID                string            `json:"id"`
	ProductID         string            `json:"product_id"`
	VariantID         string            `json:"variant_id,omitempty"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	Quantity          int               `json:"quantity"`
	UnitPrice         decimal.Decimal   `json:"unit_price"`
	UnitCost          decimal.Decimal   `json:"unit_cost"`
	TotalPrice        decimal.Decimal   `json:"total_price"`
	TotalCost         decimal.Decimal   `json:"total_cost"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	Taxable           bool              `json:"taxable"`
	TaxRate           decimal.Decimal   `json:"tax_rate"`
	TaxAmount         decimal.Decimal   `json:"tax_amount"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount"`
	Weight            decimal.Decimal   `json:"weight"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	SupplierProductID string            `json:"supplier_product_id"`
	SupplierVariantID string            `json:"supplier_variant_id,omitempty"`
	SupplierID        string            `json:"supplier_id"`
}

// SupplierOrderItemRef points at an order item routed to a supplier
type SupplierOrderItemRef struct {
	OrderItemID string `json:"order_item_id"`
	Quantity    int    `json:"quantity"`
}

// SupplierOrderReference is the order's record of a sub-order placed with one supplier
type SupplierOrderReference struct {
	ID             string                 `json:"id"`
	SupplierID     string                 `json:"supplier_id"`
	SupplierName   string                 `json:"supplier_name"`
	Items          []SupplierOrderItemRef `json:"items"`
	Status         SupplierOrderStatus    `json:"status"`
	TrackingNumber string                 `json:"tracking_number,omitempty"`
	TrackingURL    string                 `json:"tracking_url,omitempty"`
	ShippingMethod string                 `json:"shipping_method"`
	ShippingCost   decimal.Decimal        `json:"shipping_cost"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Order is the customer order aggregate
type Order struct {
	ID                    string                   `json:"id"`
	OrderNumber           string                   `json:"order_number"`
	CustomerID            string                   `json:"customer_id"`
	CustomerEmail         string                   `json:"customer_email"`
	CustomerName          string                   `json:"customer_name"`
	CustomerPhone         string                   `json:"customer_phone,omitempty"`
	BillingAddress        Address                  `json:"billing_address"`
	ShippingAddress       Address                  `json:"shipping_address"`
	Items                 []OrderItem              `json:"items"`
	Payment               PaymentInfo              `json:"payment"`
	Subtotal              decimal.Decimal          `json:"subtotal"`
	ShippingCost          decimal.Decimal          `json:"shipping_cost"`
	TaxAmount             decimal.Decimal          `json:"tax_amount"`
	DiscountAmount        decimal.Decimal          `json:"discount_amount"`
	Total                 decimal.Decimal          `json:"total"`
	Currency              string                   `json:"currency"`
	Status                OrderStatus              `json:"status"`
	FulfillmentStatus     FulfillmentStatus        `json:"fulfillment_status"`
	Notes                 string                   `json:"notes,omitempty"`
	Tags                  []string                 `json:"tags,omitempty"`
	SupplierOrders        []SupplierOrderReference `json:"supplier_orders"`
	FailedSupplierIDs     []string                 `json:"failed_supplier_ids,omitempty"`
	ShippingMethod        string                   `json:"shipping_method"`
	Source                OrderSource              `json:"source"`
	DiscountCodes         []string                 `json:"discount_codes,omitempty"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
	ProcessedAt           *time.Time               `json:"processed_at,omitempty"`
	CompletedAt           *time.Time               `json:"completed_at,omitempty"`
	CancelledAt           *time.Time               `json:"cancelled_at,omitempty"`
	RefundedAt            *time.Time               `json:"refunded_at,omitempty"`
	EstimatedDeliveryDate *time.Time               `json:"estimated_delivery_date,omitempty"`
}

// Item finds an order item by id
func (o *Order) Item(id string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// HasProduct reports whether any item references a store product
func (o *Order) HasProduct(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// DiscountCode is a promotion code with eligibility rules and usage counters
type DiscountCode struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Type               DiscountType    `json:"type"`
	Value              decimal.Decimal `json:"value"`
	MinimumOrderAmount decimal.Decimal `json:"minimum_order_amount"`
	AppliesTo          DiscountScope   `json:"applies_to"`
	TargetIDs          []string        `json:"target_ids,omitempty"`
	ExcludedProductIDs []string        `json:"excluded_product_ids,omitempty"`
	UsageLimit         int             `json:"usage_limit"`
	UsageCount         int             `json:"usage_count"`
	CustomerLimit      int             `json:"customer_limit"`
	CustomerUsage      map[string]int  `json:"customer_usage"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
}

// CartItem is one line of an abandoned cart snapshot
type CartItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// AbandonedCart is a customer's unconverted cart snapshot
type AbandonedCart struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	CustomerEmail    string          `json:"customer_email"`
	Items            []CartItem      `json:"items"`
	TotalValue       decimal.Decimal `json:"total_value"`
	ReminderCount    int             `json:"reminder_count"`
	LastReminderSent *time.Time      `json:"last_reminder_sent,omitempty"`
	IsRecovered      bool            `json:"is_recovered"`
	RecoveredOrderID string          `json:"recovered_order_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CampaignContent is the message a campaign delivers
type CampaignContent struct {
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
	CTAText  string `json:"cta_text,omitempty"`
	CTAURL   string `json:"cta_url,omitempty"`
}

// CampaignStats are the engagement counters of a sent campaign
type CampaignStats struct {
	Sent      int             `json:"sent"`
	Opened    int             `json:"opened"`
	Clicked   int             `json:"clicked"`
	Converted int             `json:"converted"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Campaign is a marketing message sent to an audience, optionally carrying a discount code
type Campaign struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Type           CampaignType     `json:"type"`
	Status         CampaignStatus   `json:"status"`
	Audience       CampaignAudience `json:"audience"`
	CustomerIDs    []string         `json:"customer_ids,omitempty"`
	Content        CampaignContent  `json:"content"`
	DiscountCodeID string           `json:"discount_code_id,omitempty"`
	ScheduledDate  *time.Time       `json:"scheduled_date,omitempty"`
	SentDate       *time.Time       `json:"sent_date,omitempty"`
	Stats          CampaignStats    `json:"stats"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IdempotencyKey stores the order created for a client-supplied key
type IdempotencyKey struct {
	Token       string    `json:"key"`
	RequestHash string    `json:"request_hash"`
	OrderID     string    `json:"order_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SupplierOrder is the supplier-side record of a placed sub-order
type SupplierOrder struct {
	ID              string              `json:"id"`
	SupplierID      string              `json:"supplier_id"`
	StoreOrderID    string              `json:"store_order_id"`
	Items           []SupplierOrderLine `json:"items"`
	ShippingAddress Address             `json:"shipping_address"`
	ShippingMethod  string              `json:"shipping_method"`
	ShippingCost    decimal.Decimal     `json:"shipping_cost"`
	Status          SupplierOrderStatus `json:"status"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	TrackingURL     string              `json:"tracking_url,omitempty"`
	PlacedAt        time.Time           `json:"placed_at"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
}

// SupplierOrderLine is one line of a supplier sub-order
type SupplierOrderLine struct {
	OrderItemID       string `json:"order_item_id"`
	SupplierProductID string `json:"supplier_product_id"`
	SupplierVariantID string `json:"supplier_variant_id,omitempty"`
	Quantity          int    `json:"quantity"`
}
