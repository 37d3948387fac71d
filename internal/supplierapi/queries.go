package supplierapi

const supplierFields = `
  id
  name
  contactEmail
  shippingCountries
  averageShippingDays
  processingDays
  reliabilityScore
  productCategories
  minimumOrderValue
  hasAutomatedApi
  active
`

const productFields = `
  id
  supplierId
  sku
  name
  description
  basePrice
  currency
  categories
  inventoryCount
  minOrderQuantity
  shippingWeight
  isAvailable
  variants {
    id
    name
    sku
    additionalPrice
    inventoryCount
  }
`

const orderFields = `
  id
  supplierId
  storeOrderId
  status
  trackingNumber
  trackingUrl
  shippingMethod
  shippingCost
  placedAt
  cancelledAt
  items {
    orderItemId
    supplierProductId
    supplierVariantId
    quantity
  }
`

// SupplierQuery fetches one supplier
const SupplierQuery = `
query getSupplier($id: ID!) {
  supplier(id: $id) {` + supplierFields + `}
}
`

// SuppliersQuery lists every supplier on the network
const SuppliersQuery = `
query getSuppliers {
  suppliers {` + supplierFields + `}
}
`

// ProductQuery fetches one product of a supplier
const ProductQuery = `
query getProduct($supplierId: ID!, $id: ID!) {
  product(supplierId: $supplierId, id: $id) {` + productFields + `}
}
`

// ProductsQuery pages through a supplier catalog
const ProductsQuery = `
query getProducts($supplierId: ID!, $first: Int!, $after: String) {
  products(supplierId: $supplierId, first: $first, after: $after) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {` + productFields + `}
    }
  }
}
`

// OrderQuery fetches the current state of a placed sub-order
const OrderQuery = `
query getOrder($id: ID!) {
  order(id: $id) {` + orderFields + `}
}
`

// ShippingQuoteQuery prices a parcel to a destination
const ShippingQuoteQuery = `
query shippingQuote($supplierId: ID!, $productIds: [ID!]!, $country: String!, $postalCode: String) {
  shippingQuote(supplierId: $supplierId, productIds: $productIds, country: $country, postalCode: $postalCode) {
    amount
    userErrors {
      code
      field
      message
    }
  }
}
`
