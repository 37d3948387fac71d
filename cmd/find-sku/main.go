package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/supplierapi"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/find-sku/main.go <supplier-id> <sku>")
		fmt.Println("Example: go run cmd/find-sku/main.go sup-001 \"GG-WATCH-001-BLK\"")
		os.Exit(1)
	}

	supplierID := os.Args[1]
	targetSKU := os.Args[2]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Supplier.Endpoint == "" {
		fmt.Fprintln(os.Stderr, "SUPPLIER_ENDPOINT is not set")
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	gateway := supplierapi.NewGateway(supplierapi.NewClient(cfg.Supplier, logger), logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Searching %s for SKU: %s\n\n", supplierID, targetSKU)

	cursor := ""
	checked := 0
	for {
		page, err := gateway.FetchProductPage(ctx, supplierID, cursor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query supplier: %v\n", err)
			os.Exit(1)
		}

		for _, product := range page.Products {
			if product.SKU == targetSKU {
				fmt.Printf("Found SKU on product\n\n")
				fmt.Printf("Product ID: %s\n", product.ID)
				fmt.Printf("Name: %s\n", product.Name)
				fmt.Printf("Base Price: %s %s\n", product.BasePrice.StringFixed(2), product.Currency)
				fmt.Printf("Inventory: %d\n", product.InventoryCount)
				printImportHint(supplierID, product.ID)
				return
			}
			for _, v := range product.Variants {
				if v.SKU != targetSKU {
					continue
				}
				fmt.Printf("Found SKU on variant\n\n")
				fmt.Printf("Product ID: %s\n", product.ID)
				fmt.Printf("Product Name: %s\n", product.Name)
				fmt.Printf("Variant ID: %s\n", v.ID)
				fmt.Printf("Variant Name: %s\n", v.Name)
				fmt.Printf("Price: %s %s\n", product.BasePrice.Add(v.AdditionalPrice).StringFixed(2), product.Currency)
				fmt.Printf("Inventory: %d\n", v.InventoryCount)
				printImportHint(supplierID, product.ID)
				return
			}
		}

		checked += len(page.Products)
		if !page.HasNext {
			break
		}
		cursor = page.Cursor
		fmt.Printf("Searching... (checked %d products so far)\n", checked)
	}

	fmt.Printf("SKU '%s' not found in the %s catalog (%d products checked).\n", targetSKU, supplierID, checked)
	fmt.Printf("\nMake sure:\n")
	fmt.Printf("  1. The SKU is correct (case-sensitive)\n")
	fmt.Printf("  2. The supplier id is correct\n")
	os.Exit(1)
}

func printImportHint(supplierID, productID string) {
	fmt.Printf("\nTo import this product into the store, run:\n")
	fmt.Printf("go run cmd/import-product/main.go %s %s\n", supplierID, productID)
}
