package supplier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
)

// PlaceOrderRequest is one supplier group of a store order
type PlaceOrderRequest struct {
	SupplierID     string
	StoreOrderID   string
	Items          []domain.SupplierOrderLine
	Destination    domain.Address
	ShippingMethod string
}

// Destination is the part of an address that drives shipping quotes
type Destination struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// Gateway is the boundary to the supplier network. Every call may be slow or
// fail; callers bound it with a context deadline.
type Gateway interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.SupplierOrder, error)
	CheckOrderStatus(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error)
	CancelOrder(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error)
	CalculateShipping(ctx context.Context, supplierID string, productIDs []string, dest Destination) (decimal.Decimal, error)

	GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]*domain.Supplier, error)
	GetProduct(ctx context.Context, supplierID, productID string) (*domain.SupplierProduct, error)
	ListProducts(ctx context.Context, supplierID string) ([]*domain.SupplierProduct, error)
	CheckInventory(ctx context.Context, supplierID, productID string) (int, error)
}
