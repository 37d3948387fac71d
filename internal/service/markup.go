package service

import (
	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
)

// ResolveMarkup picks the markup percentage for a supplier product.
// The highest matching category markup wins, then the supplier markup, then the default.
func ResolveMarkup(product *domain.SupplierProduct, settings domain.MarkupSettings) decimal.Decimal {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, category := range product.Categories {
		pct, ok := settings.CategoryMarkups[category]
		if !ok {
			continue
		}
		if !found || pct.GreaterThan(best) {
			best = pct
			found = true
		}
	}
	if found {
		return best
	}
	if pct, ok := settings.SupplierMarkups[product.SupplierID]; ok {
		return pct
	}
	return settings.DefaultMarkupPercentage
}

// ResolvePrice is the store price of a supplier product. It is not rounded;
// amounts are rounded only when they leave the service.
func ResolvePrice(product *domain.SupplierProduct, settings domain.MarkupSettings) decimal.Decimal {
	return domain.ApplyMarkup(product.BasePrice, ResolveMarkup(product, settings))
}

// VariantCost is the supplier cost of one variant
func VariantCost(product *domain.SupplierProduct, v domain.ProductVariant) decimal.Decimal {
	return product.BasePrice.Add(v.AdditionalPrice)
}

// MarginPercent is (price - cost) / price × 100, or zero when price is zero
func MarginPercent(price, cost decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return price.Sub(cost).Div(price).Mul(decimal.NewFromInt(100))
}
