package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/config"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/repository/gormstore"
	"github.com/jafarshop/dropsim/internal/repository/memory"
	"github.com/jafarshop/dropsim/internal/service"
	"github.com/jafarshop/dropsim/internal/supplier"
	"github.com/jafarshop/dropsim/internal/supplierapi"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/import-product/main.go <supplier-id> <supplier-product-id> [markup-percentage]")
		fmt.Println("Example: go run cmd/import-product/main.go sup-001 prod-002 60")
		os.Exit(1)
	}

	supplierID := os.Args[1]
	productID := os.Args[2]

	var overrides service.ImportOverrides
	if len(os.Args) > 3 {
		markup, err := decimal.NewFromString(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid markup percentage %q: %v\n", os.Args[3], err)
			os.Exit(1)
		}
		overrides.MarkupPercentage = &markup
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()

	var repos *repository.Repositories
	if strings.EqualFold(cfg.Database.Driver, "memory") || cfg.Database.Driver == "" {
		// nothing persists in memory, so start from the demo catalog
		repos = memory.NewRepositories()
		if err := supplier.Seed(ctx, repos); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed suppliers: %v\n", err)
			os.Exit(1)
		}
	} else {
		db, err := gormstore.Open(cfg.Database.Driver, cfg.Database.DSN, gormstore.PoolConfig{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		repos = gormstore.NewRepositories(db)
	}

	var gateway supplier.Gateway
	if strings.EqualFold(cfg.Supplier.Mode, "http") {
		gateway = supplierapi.NewGateway(supplierapi.NewClient(cfg.Supplier, logger), logger)
	} else {
		gateway = supplier.NewSimulator(repos, logger)
	}

	services := service.New(service.Deps{Repos: repos, Gateway: gateway, Logger: logger})
	product, err := services.Catalog.ImportProductFromSupplier(ctx, supplierID, productID, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to import product: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode product: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Product imported successfully!\n\n")
	fmt.Printf("Store Product ID: %s\n", product.ID)
	fmt.Printf("Price: %s\n\n", product.Price)
	fmt.Println(string(out))
}
