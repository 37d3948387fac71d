package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolveMarkupPriority(t *testing.T) {
	settings := DefaultSettings().Markup

	tests := []struct {
		name       string
		supplierID string
		categories []string
		want       string
	}{
		{"highest category wins", "sup-001", []string{"Electronics", "Wearables", "Accessories"}, "100"},
		{"single category", "sup-001", []string{"Electronics", "Smartphones"}, "40"},
		{"supplier when no category matches", "sup-003", []string{"Kitchen"}, "60"},
		{"default when nothing matches", "sup-999", []string{"Garden"}, "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := &domain.SupplierProduct{SupplierID: tt.supplierID, Categories: tt.categories}
			if got := ResolveMarkup(product, settings); !got.Equal(d(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolvePriceRoundTripsToMarkup(t *testing.T) {
	settings := DefaultSettings().Markup
	for _, base := range []string{"350", "120", "45", "19.99", "0.35"} {
		product := &domain.SupplierProduct{SupplierID: "sup-002", BasePrice: d(base), Categories: []string{"Clothing"}}
		price := ResolvePrice(product, settings)
		recovered := price.Div(product.BasePrice).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
		if recovered.Sub(d("80")).Abs().GreaterThan(d("0.000001")) {
			t.Fatalf("base %s: price %s implies markup %s, want 80", base, price, recovered)
		}
	}
}

func TestMarginPercentZeroPrice(t *testing.T) {
	if got := MarginPercent(decimal.Zero, d("10")); !got.IsZero() {
		t.Fatalf("expected zero margin, got %s", got)
	}
	if got := MarginPercent(d("200"), d("150")); !got.Equal(d("25")) {
		t.Fatalf("expected 25, got %s", got)
	}
}
