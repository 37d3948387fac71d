package service

import (
	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
)

// CreateOrderRequest represents a checkout submission
type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	CustomerEmail   string             `json:"customer_email" binding:"required"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	BillingAddress  *domain.Address    `json:"billing_address,omitempty"`
	ShippingAddress domain.Address     `json:"shipping_address" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1"`
	ShippingMethod  string             `json:"shipping_method"`
	PaymentMethod   string             `json:"payment_method"`
	Source          domain.OrderSource `json:"source"`
	DiscountCode    string             `json:"discount_code,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
}

// OrderItemRequest is one line of a checkout submission
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// ShippingQuoteRequest asks a supplier what shipping would cost
type ShippingQuoteRequest struct {
	SupplierID string   `json:"supplier_id" binding:"required"`
	ProductIDs []string `json:"product_ids"`
	Country    string   `json:"country" binding:"required"`
	PostalCode string   `json:"postal_code"`
}

// ProfitReport is the realized profit of an order
type ProfitReport struct {
	OrderID      string       `json:"order_id"`
	Revenue      domain.Money `json:"revenue"`
	Cost         domain.Money `json:"cost"`
	Profit       domain.Money `json:"profit"`
	ProfitMargin domain.Money `json:"profit_margin"`
}

// orderProfit keeps unrounded values for aggregation
type orderProfit struct {
	revenue decimal.Decimal
	cost    decimal.Decimal
	profit  decimal.Decimal
	margin  decimal.Decimal
}

func (p orderProfit) report(orderID string) ProfitReport {
	return ProfitReport{
		OrderID:      orderID,
		Revenue:      domain.NewMoney(p.revenue),
		Cost:         domain.NewMoney(p.cost),
		Profit:       domain.NewMoney(p.profit),
		ProfitMargin: domain.NewMoney(p.margin),
	}
}
