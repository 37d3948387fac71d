package supplier

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func variant(id, name, sku, extra string, stock int, attrs map[string]string) domain.ProductVariant {
	return domain.ProductVariant{
		ID:              id,
		Name:            name,
		SKU:             sku,
		AdditionalPrice: dec(extra),
		InventoryCount:  stock,
		Attributes:      attrs,
	}
}

// DemoSuppliers is the simulated supplier network
func DemoSuppliers() []*domain.Supplier {
	return []*domain.Supplier{
		{
			ID:                  "sup-001",
			Name:                "Global Gadgets Supply",
			ContactEmail:        "contact@globalgadgets.com",
			ShippingCountries:   []string{"US", "CA", "UK", "AU", "DE", "FR"},
			AverageShippingDays: 5,
			ProcessingDays:      1,
			ReliabilityScore:    92,
			ProductCategories:   []string{"Electronics", "Smartphones", "Accessories"},
			MinimumOrderValue:   dec("100"),
			HasAutomatedAPI:     true,
			Active:              true,
		},
		{
			ID:                  "sup-002",
			Name:                "Fashion Forward",
			ContactEmail:        "suppliers@fashionforward.com",
			ShippingCountries:   []string{"US", "CA", "UK", "DE", "FR", "IT", "ES"},
			AverageShippingDays: 7,
			ProcessingDays:      2,
			ReliabilityScore:    87,
			ProductCategories:   []string{"Clothing", "Shoes", "Accessories", "Jewelry"},
			MinimumOrderValue:   dec("50"),
			HasAutomatedAPI:     true,
			Active:              true,
		},
		{
			ID:                  "sup-003",
			Name:                "Home Essentials Co",
			ContactEmail:        "wholesale@homeessentials.com",
			ShippingCountries:   []string{"US", "CA", "UK", "AU"},
			AverageShippingDays: 8,
			ProcessingDays:      3,
			ReliabilityScore:    90,
			ProductCategories:   []string{"Home Decor", "Kitchen", "Bedding", "Bath"},
			MinimumOrderValue:   dec("75"),
			Active:              true,
		},
	}
}

// DemoProducts is the simulated supplier catalog
func DemoProducts() []*domain.SupplierProduct {
	return []*domain.SupplierProduct{
		{
			ID:          "prod-001",
			SupplierID:  "sup-001",
			SKU:         "GG-PHONE-001",
			Name:        "SmartPhone X Pro",
			Description: "Latest smartphone with advanced features",
			BasePrice:   dec("350"),
			Currency:    "USD",
			Categories:  []string{"Electronics", "Smartphones"},
			Variants: []domain.ProductVariant{
				variant("var-001", "Black / 64GB", "GG-PHONE-001-BLK-64", "0", 120, map[string]string{"color": "Black", "storage": "64GB"}),
				variant("var-002", "Black / 128GB", "GG-PHONE-001-BLK-128", "50", 85, map[string]string{"color": "Black", "storage": "128GB"}),
				variant("var-003", "Blue / 64GB", "GG-PHONE-001-BLU-64", "0", 95, map[string]string{"color": "Blue", "storage": "64GB"}),
				variant("var-004", "Blue / 128GB", "GG-PHONE-001-BLU-128", "50", 75, map[string]string{"color": "Blue", "storage": "128GB"}),
			},
			Attributes:       map[string]string{"brand": "TechX", "model": "X Pro"},
			InventoryCount:   375,
			MinOrderQuantity: 1,
			ShippingWeight:   dec("0.5"),
			Dimensions:       domain.Dimensions{Length: dec("16"), Width: dec("8"), Height: dec("2"), Unit: "cm"},
			IsAvailable:      true,
		},
		{
			ID:          "prod-002",
			SupplierID:  "sup-001",
			SKU:         "GG-WATCH-001",
			Name:        "Smart Watch Elite",
			Description: "Premium smartwatch with health tracking features",
			BasePrice:   dec("120"),
			Currency:    "USD",
			Categories:  []string{"Electronics", "Wearables", "Accessories"},
			Variants: []domain.ProductVariant{
				variant("var-005", "Black / Plastic", "GG-WATCH-001-BLK-P", "0", 150, map[string]string{"color": "Black", "material": "Plastic"}),
				variant("var-006", "Black / Metal", "GG-WATCH-001-BLK-M", "30", 100, map[string]string{"color": "Black", "material": "Metal"}),
				variant("var-007", "Silver / Plastic", "GG-WATCH-001-SIL-P", "0", 125, map[string]string{"color": "Silver", "material": "Plastic"}),
				variant("var-008", "Silver / Metal", "GG-WATCH-001-SIL-M", "30", 85, map[string]string{"color": "Silver", "material": "Metal"}),
			},
			Attributes:       map[string]string{"brand": "TechX", "model": "Elite"},
			InventoryCount:   460,
			MinOrderQuantity: 1,
			ShippingWeight:   dec("0.3"),
			Dimensions:       domain.Dimensions{Length: dec("5"), Width: dec("5"), Height: dec("2"), Unit: "cm"},
			IsAvailable:      true,
		},
		{
			ID:          "prod-003",
			SupplierID:  "sup-002",
			SKU:         "FF-JACKET-001",
			Name:        "Winter Parka Jacket",
			Description: "Warm winter jacket with waterproof exterior",
			BasePrice:   dec("45"),
			Currency:    "USD",
			Categories:  []string{"Clothing", "Outerwear"},
			Variants: []domain.ProductVariant{
				variant("var-009", "Black / S", "FF-JACKET-001-BLK-S", "0", 50, map[string]string{"color": "Black", "size": "S"}),
				variant("var-010", "Black / M", "FF-JACKET-001-BLK-M", "0", 75, map[string]string{"color": "Black", "size": "M"}),
				variant("var-011", "Black / L", "FF-JACKET-001-BLK-L", "0", 60, map[string]string{"color": "Black", "size": "L"}),
				variant("var-012", "Green / S", "FF-JACKET-001-GRN-S", "0", 45, map[string]string{"color": "Green", "size": "S"}),
				variant("var-013", "Green / M", "FF-JACKET-001-GRN-M", "0", 65, map[string]string{"color": "Green", "size": "M"}),
				variant("var-014", "Green / L", "FF-JACKET-001-GRN-L", "0", 55, map[string]string{"color": "Green", "size": "L"}),
			},
			Attributes:       map[string]string{"material": "Polyester", "season": "Winter"},
			InventoryCount:   350,
			MinOrderQuantity: 3,
			ShippingWeight:   dec("1.2"),
			Dimensions:       domain.Dimensions{Length: dec("30"), Width: dec("25"), Height: dec("5"), Unit: "cm"},
			IsAvailable:      true,
		},
	}
}

// Seed loads the demo network into the repositories, overwriting existing records
func Seed(ctx context.Context, repos *repository.Repositories) error {
	for _, s := range DemoSuppliers() {
		if err := repos.Suppliers.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to seed supplier %s: %w", s.ID, err)
		}
	}
	for _, p := range DemoProducts() {
		if err := repos.SupplierProducts.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to seed supplier product %s: %w", p.ID, err)
		}
	}
	return nil
}
