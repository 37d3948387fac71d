package supplier

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
)

// ShippingCostFunc quotes a shipment from a supplier for a total parcel weight in kg
type ShippingCostFunc func(s *domain.Supplier, totalWeight decimal.Decimal) decimal.Decimal

// FlatRate charges base + perKg × weight
func FlatRate(base, perKg decimal.Decimal) ShippingCostFunc {
	return func(_ *domain.Supplier, totalWeight decimal.Decimal) decimal.Decimal {
		return domain.Round2(base.Add(perKg.Mul(totalWeight)))
	}
}

// SeededRate draws the base from [5, 15) using a seeded source, then adds perKg × weight.
// Quotes are reproducible for a given seed and call sequence.
func SeededRate(seed int64, perKg decimal.Decimal) ShippingCostFunc {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	five := decimal.NewFromInt(5)
	ten := decimal.NewFromInt(10)
	return func(_ *domain.Supplier, totalWeight decimal.Decimal) decimal.Decimal {
		mu.Lock()
		r := rng.Float64()
		mu.Unlock()
		base := five.Add(ten.Mul(decimal.NewFromFloat(r)))
		return domain.Round2(base.Add(perKg.Mul(totalWeight)))
	}
}

// DefaultShipping is 5.00 plus 0.50 per kg
var DefaultShipping = FlatRate(decimal.RequireFromString("5.00"), decimal.RequireFromString("0.50"))
