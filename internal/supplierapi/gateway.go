package supplierapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/pkg/errors"
)

const pageSize = 50

// Gateway talks to a remote supplier network over GraphQL
type Gateway struct {
	client *Client
	logger *zap.Logger
}

// NewGateway wraps a client as a supplier.Gateway
func NewGateway(client *Client, logger *zap.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

var _ supplier.Gateway = (*Gateway)(nil)

type supplierNode struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	ContactEmail        string          `json:"contactEmail"`
	ShippingCountries   []string        `json:"shippingCountries"`
	AverageShippingDays int             `json:"averageShippingDays"`
	ProcessingDays      int             `json:"processingDays"`
	ReliabilityScore    int             `json:"reliabilityScore"`
	ProductCategories   []string        `json:"productCategories"`
	MinimumOrderValue   decimal.Decimal `json:"minimumOrderValue"`
	HasAutomatedAPI     bool            `json:"hasAutomatedApi"`
	Active              bool            `json:"active"`
}

func (n *supplierNode) toDomain() *domain.Supplier {
	return &domain.Supplier{
		ID:                  n.ID,
		Name:                n.Name,
		ContactEmail:        n.ContactEmail,
		ShippingCountries:   n.ShippingCountries,
		AverageShippingDays: n.AverageShippingDays,
		ProcessingDays:      n.ProcessingDays,
		ReliabilityScore:    n.ReliabilityScore,
		ProductCategories:   n.ProductCategories,
		MinimumOrderValue:   n.MinimumOrderValue,
		HasAutomatedAPI:     n.HasAutomatedAPI,
		Active:              n.Active,
	}
}

type variantNode struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	AdditionalPrice decimal.Decimal `json:"additionalPrice"`
	InventoryCount  int             `json:"inventoryCount"`
}

// ProductNode is a catalog entry as the supplier network reports it
type ProductNode struct {
	ID               string          `json:"id"`
	SupplierID       string          `json:"supplierId"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	BasePrice        decimal.Decimal `json:"basePrice"`
	Currency         string          `json:"currency"`
	Categories       []string        `json:"categories"`
	InventoryCount   int             `json:"inventoryCount"`
	MinOrderQuantity int             `json:"minOrderQuantity"`
	ShippingWeight   decimal.Decimal `json:"shippingWeight"`
	IsAvailable      bool            `json:"isAvailable"`
	Variants         []variantNode   `json:"variants"`
}

func (n *ProductNode) toDomain() *domain.SupplierProduct {
	p := &domain.SupplierProduct{
		ID:               n.ID,
		SupplierID:       n.SupplierID,
		SKU:              n.SKU,
		Name:             n.Name,
		Description:      n.Description,
		BasePrice:        n.BasePrice,
		Currency:         n.Currency,
		Categories:       n.Categories,
		InventoryCount:   n.InventoryCount,
		MinOrderQuantity: n.MinOrderQuantity,
		ShippingWeight:   n.ShippingWeight,
		IsAvailable:      n.IsAvailable,
	}
	for _, v := range n.Variants {
		p.Variants = append(p.Variants, domain.ProductVariant{
			ID:              v.ID,
			Name:            v.Name,
			SKU:             v.SKU,
			AdditionalPrice: v.AdditionalPrice,
			InventoryCount:  v.InventoryCount,
		})
	}
	return p
}

type orderNode struct {
	ID             string          `json:"id"`
	SupplierID     string          `json:"supplierId"`
	StoreOrderID   string          `json:"storeOrderId"`
	Status         string          `json:"status"`
	TrackingNumber string          `json:"trackingNumber"`
	TrackingURL    string          `json:"trackingUrl"`
	ShippingMethod string          `json:"shippingMethod"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	PlacedAt       time.Time       `json:"placedAt"`
	CancelledAt    *time.Time      `json:"cancelledAt"`
	Items          []struct {
		OrderItemID       string `json:"orderItemId"`
		SupplierProductID string `json:"supplierProductId"`
		SupplierVariantID string `json:"supplierVariantId"`
		Quantity          int    `json:"quantity"`
	} `json:"items"`
}

func (n *orderNode) toDomain() (*domain.SupplierOrder, error) {
	status := domain.SupplierOrderStatus(n.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("supplier reported unknown order status %q", n.Status)
	}
	o := &domain.SupplierOrder{
		ID:             n.ID,
		SupplierID:     n.SupplierID,
		StoreOrderID:   n.StoreOrderID,
		Status:         status,
		TrackingNumber: n.TrackingNumber,
		TrackingURL:    n.TrackingURL,
		ShippingMethod: n.ShippingMethod,
		ShippingCost:   n.ShippingCost,
		PlacedAt:       n.PlacedAt,
		CancelledAt:    n.CancelledAt,
	}
	for _, item := range n.Items {
		o.Items = append(o.Items, domain.SupplierOrderLine{
			OrderItemID:       item.OrderItemID,
			SupplierProductID: item.SupplierProductID,
			SupplierVariantID: item.SupplierVariantID,
			Quantity:          item.Quantity,
		})
	}
	return o, nil
}

type orderPayload struct {
	Order      *orderNode  `json:"order"`
	UserErrors []UserError `json:"userErrors"`
}

// call executes a query and decodes its data, translating transport failures
func (g *Gateway) call(ctx context.Context, supplierID, operation, query string, vars map[string]interface{}, out interface{}) error {
	resp, err := g.client.Execute(ctx, query, vars)
	if err != nil {
		g.logger.Warn("Supplier call failed",
			zap.String("supplier_id", supplierID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return &errors.ErrSupplierUnavailable{
			SupplierID: supplierID,
			Operation:  operation,
			Retryable:  isRetryable(ctx, err),
			Cause:      err,
		}
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	return nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// userError maps the first business rejection to a typed error
func userError(supplierID string, country string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	switch first.Code {
	case "UNSUPPORTED_DESTINATION":
		return &errors.ErrUnsupportedDestination{SupplierID: supplierID, Country: country}
	case "NOT_FOUND":
		return &errors.ErrNotFound{Resource: "supplier resource", ID: first.Message}
	case "INVALID_STATE":
		return &errors.ErrInvalidStateTransition{Resource: "supplier order", From: "unknown", To: first.Message}
	}
	v := &errors.ErrValidation{}
	for _, e := range errs {
		field := "input"
		if len(e.Field) > 0 {
			field = e.Field[len(e.Field)-1]
		}
		v.Add(field, e.Message)
	}
	return v
}

func (g *Gateway) GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error) {
	var data struct {
		Supplier *supplierNode `json:"supplier"`
	}
	if err := g.call(ctx, supplierID, "get_supplier", SupplierQuery, map[string]interface{}{"id": supplierID}, &data); err != nil {
		return nil, err
	}
	if data.Supplier == nil {
		return nil, &errors.ErrNotFound{Resource: "supplier", ID: supplierID}
	}
	return data.Supplier.toDomain(), nil
}

func (g *Gateway) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	var data struct {
		Suppliers []supplierNode `json:"suppliers"`
	}
	if err := g.call(ctx, "", "list_suppliers", SuppliersQuery, nil, &data); err != nil {
		return nil, err
	}
	out := make([]*domain.Supplier, 0, len(data.Suppliers))
	for i := range data.Suppliers {
		out = append(out, data.Suppliers[i].toDomain())
	}
	return out, nil
}

func (g *Gateway) GetProduct(ctx context.Context, supplierID, productID string) (*domain.SupplierProduct, error) {
	var data struct {
		Product *ProductNode `json:"product"`
	}
	vars := map[string]interface{}{"supplierId": supplierID, "id": productID}
	if err := g.call(ctx, supplierID, "get_product", ProductQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, &errors.ErrNotFound{Resource: "supplier product", ID: productID}
	}
	return data.Product.toDomain(), nil
}

// ProductPage is one page of a supplier catalog
type ProductPage struct {
	Products []ProductNode
	HasNext  bool
	Cursor   string
}

// FetchProductPage reads one catalog page starting after cursor
func (g *Gateway) FetchProductPage(ctx context.Context, supplierID, cursor string) (*ProductPage, error) {
	vars := map[string]interface{}{"supplierId": supplierID, "first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	var data struct {
		Products struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node ProductNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := g.call(ctx, supplierID, "list_products", ProductsQuery, vars, &data); err != nil {
		return nil, err
	}
	page := &ProductPage{
		HasNext: data.Products.PageInfo.HasNextPage,
		Cursor:  data.Products.PageInfo.EndCursor,
	}
	for _, edge := range data.Products.Edges {
		page.Products = append(page.Products, edge.Node)
	}
	return page, nil
}

func (g *Gateway) ListProducts(ctx context.Context, supplierID string) ([]*domain.SupplierProduct, error) {
	var out []*domain.SupplierProduct
	cursor := ""
	for {
		page, err := g.FetchProductPage(ctx, supplierID, cursor)
		if err != nil {
			return nil, err
		}
		for i := range page.Products {
			out = append(out, page.Products[i].toDomain())
		}
		if !page.HasNext || page.Cursor == "" {
			return out, nil
		}
		cursor = page.Cursor
	}
}

// CheckInventory returns 0 for products the supplier does not carry
func (g *Gateway) CheckInventory(ctx context.Context, supplierID, productID string) (int, error) {
	product, err := g.GetProduct(ctx, supplierID, productID)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return product.InventoryCount, nil
}

func (g *Gateway) CalculateShipping(ctx context.Context, supplierID string, productIDs []string, dest supplier.Destination) (decimal.Decimal, error) {
	var data struct {
		ShippingQuote struct {
			Amount     decimal.Decimal `json:"amount"`
			UserErrors []UserError     `json:"userErrors"`
		} `json:"shippingQuote"`
	}
	vars := map[string]interface{}{
		"supplierId": supplierID,
		"productIds": productIDs,
		"country":    dest.Country,
		"postalCode": dest.PostalCode,
	}
	if err := g.call(ctx, supplierID, "calculate_shipping", ShippingQuoteQuery, vars, &data); err != nil {
		return decimal.Zero, err
	}
	if err := userError(supplierID, dest.Country, data.ShippingQuote.UserErrors); err != nil {
		return decimal.Zero, err
	}
	return data.ShippingQuote.Amount, nil
}

func toAddressInput(a domain.Address) AddressInput {
	in := AddressInput{
		FirstName: a.FirstName,
		Address1:  a.AddressLine1,
		City:      a.City,
		Zip:       a.PostalCode,
		Country:   a.Country,
	}
	if a.LastName != "" {
		in.LastName = &a.LastName
	}
	if a.AddressLine2 != "" {
		in.Address2 = &a.AddressLine2
	}
	if a.State != "" {
		in.Province = &a.State
	}
	if a.Phone != "" {
		in.Phone = &a.Phone
	}
	return in
}

func (g *Gateway) PlaceOrder(ctx context.Context, req supplier.PlaceOrderRequest) (*domain.SupplierOrder, error) {
	input := OrderInput{
		SupplierID:      req.SupplierID,
		StoreOrderID:    req.StoreOrderID,
		ShippingAddress: toAddressInput(req.Destination),
		ShippingMethod:  req.ShippingMethod,
	}
	for _, line := range req.Items {
		item := LineItemInput{
			OrderItemID: line.OrderItemID,
			ProductID:   line.SupplierProductID,
			Quantity:    line.Quantity,
		}
		if line.SupplierVariantID != "" {
			variantID := line.SupplierVariantID
			item.VariantID = &variantID
		}
		input.LineItems = append(input.LineItems, item)
	}

	var data struct {
		OrderCreate orderPayload `json:"orderCreate"`
	}
	if err := g.call(ctx, req.SupplierID, "place_order", OrderCreateMutation, map[string]interface{}{"input": input}, &data); err != nil {
		return nil, err
	}
	if err := userError(req.SupplierID, req.Destination.Country, data.OrderCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderCreate.Order == nil {
		return nil, fmt.Errorf("supplier %s returned no order", req.SupplierID)
	}

	g.logger.Info("Supplier order placed",
		zap.String("supplier_id", req.SupplierID),
		zap.String("supplier_order_id", data.OrderCreate.Order.ID),
	)
	return data.OrderCreate.Order.toDomain()
}

func (g *Gateway) CheckOrderStatus(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error) {
	var data struct {
		Order *orderNode `json:"order"`
	}
	if err := g.call(ctx, "", "check_order_status", OrderQuery, map[string]interface{}{"id": supplierOrderID}, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, &errors.ErrNotFound{Resource: "supplier order", ID: supplierOrderID}
	}
	return data.Order.toDomain()
}

func (g *Gateway) CancelOrder(ctx context.Context, supplierOrderID string) (*domain.SupplierOrder, error) {
	var data struct {
		OrderCancel orderPayload `json:"orderCancel"`
	}
	if err := g.call(ctx, "", "cancel_order", OrderCancelMutation, map[string]interface{}{"id": supplierOrderID}, &data); err != nil {
		return nil, err
	}
	if err := userError("", "", data.OrderCancel.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderCancel.Order == nil {
		return nil, &errors.ErrNotFound{Resource: "supplier order", ID: supplierOrderID}
	}
	return data.OrderCancel.Order.toDomain()
}
