package supplierapi

// OrderCreateMutation places a sub-order with a supplier
const OrderCreateMutation = `
mutation orderCreate($input: OrderInput!) {
  orderCreate(input: $input) {
    order {` + orderFields + `}
    userErrors {
      code
      field
      message
    }
  }
}
`

// OrderCancelMutation cancels a sub-order
const OrderCancelMutation = `
mutation orderCancel($id: ID!) {
  orderCancel(id: $id) {
    order {` + orderFields + `}
    userErrors {
      code
      field
      message
    }
  }
}
`

// OrderInput represents the input for placing an order
type OrderInput struct {
	SupplierID      string          `json:"supplierId"`
	StoreOrderID    string          `json:"storeOrderId"`
	LineItems       []LineItemInput `json:"lineItems"`
	ShippingAddress AddressInput    `json:"shippingAddress"`
	ShippingMethod  string          `json:"shippingMethod,omitempty"`
}

type LineItemInput struct {
	OrderItemID string  `json:"orderItemId"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
}

type AddressInput struct {
	FirstName string  `json:"firstName"`
	LastName  *string `json:"lastName,omitempty"`
	Address1  string  `json:"address1"`
	Address2  *string `json:"address2,omitempty"`
	City      string  `json:"city"`
	Province  *string `json:"province,omitempty"`
	Zip       string  `json:"zip"`
	Country   string  `json:"country"`
	Phone     *string `json:"phone,omitempty"`
}

// UserError is a business rejection reported inside a 200 reply
type UserError struct {
	Code    string   `json:"code"`
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}
