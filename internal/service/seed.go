package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
)

func seedTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedTimePtr(s string) *time.Time {
	t := seedTime(s)
	return &t
}

// DemoDiscountCodes are the promotions a demo store starts with
func DemoDiscountCodes() []*domain.DiscountCode {
	return []*domain.DiscountCode{
		{
			ID:            "discount-001",
			Code:          "WELCOME10",
			Type:          domain.DiscountPercentage,
			Value:         decimal.NewFromInt(10),
			AppliesTo:     domain.ScopeEntireOrder,
			UsageLimit:    1000,
			UsageCount:    150,
			CustomerLimit: 1,
			CustomerUsage: map[string]int{},
			StartDate:     seedTime("2023-01-01T00:00:00Z"),
			IsActive:      true,
			CreatedAt:     seedTime("2023-01-01T00:00:00Z"),
		},
		{
			ID:                 "discount-002",
			Code:               "SPRING30",
			Type:               domain.DiscountPercentage,
			Value:              decimal.NewFromInt(30),
			MinimumOrderAmount: decimal.NewFromInt(100),
			AppliesTo:          domain.ScopeEntireOrder,
			UsageLimit:         500,
			UsageCount:         220,
			CustomerUsage:      map[string]int{},
			StartDate:          seedTime("2023-03-01T00:00:00Z"),
			EndDate:            seedTimePtr("2023-05-31T23:59:59Z"),
			IsActive:           true,
			CreatedAt:          seedTime("2023-02-15T00:00:00Z"),
		},
		{
			ID:                 "discount-003",
			Code:               "FREESHIP",
			Type:               domain.DiscountFreeShipping,
			Value:              decimal.NewFromInt(15),
			MinimumOrderAmount: decimal.NewFromInt(75),
			AppliesTo:          domain.ScopeEntireOrder,
			UsageCount:         85,
			CustomerUsage:      map[string]int{},
			StartDate:          seedTime("2023-01-15T00:00:00Z"),
			EndDate:            seedTimePtr("2023-12-31T23:59:59Z"),
			IsActive:           true,
			CreatedAt:          seedTime("2023-01-15T00:00:00Z"),
		},
	}
}

// DemoCampaigns are the marketing campaigns a demo store starts with
func DemoCampaigns() []*domain.Campaign {
	return []*domain.Campaign{
		{
			ID:       "campaign-001",
			Name:     "Welcome Email Series",
			Type:     domain.CampaignEmail,
			Status:   domain.CampaignActive,
			Audience: domain.AudienceAll,
			Content: domain.CampaignContent{
				Subject: "Welcome to Our Store!",
				Body:    "Thank you for signing up! Use code WELCOME10 for 10% off your first order.",
				CTAText: "Shop Now",
				CTAURL:  "https://ecomsimulate.shop/products",
			},
			DiscountCodeID: "discount-001",
			Stats:          domain.CampaignStats{Sent: 500, Opened: 300, Clicked: 150, Converted: 50, Revenue: decimal.NewFromInt(2500)},
			CreatedAt:      seedTime("2023-01-15T00:00:00Z"),
			UpdatedAt:      seedTime("2023-03-01T00:00:00Z"),
		},
		{
			ID:       "campaign-002",
			Name:     "Spring Sale",
			Type:     domain.CampaignEmail,
			Status:   domain.CampaignScheduled,
			Audience: domain.AudienceAll,
			Content: domain.CampaignContent{
				Subject:  "Spring Sale - 30% Off Everything!",
				Body:     "Our biggest sale of the season is here. Take 30% off sitewide!",
				ImageURL: "https://example.com/spring-sale.jpg",
				CTAText:  "Shop Sale",
				CTAURL:   "https://ecomsimulate.shop/sale",
			},
			DiscountCodeID: "discount-002",
			ScheduledDate:  seedTimePtr("2023-03-15T09:00:00Z"),
			Stats:          domain.CampaignStats{Revenue: decimal.Zero},
			CreatedAt:      seedTime("2023-03-01T00:00:00Z"),
			UpdatedAt:      seedTime("2023-03-01T00:00:00Z"),
		},
		{
			ID:          "campaign-003",
			Name:        "Abandoned Cart Recovery",
			Type:        domain.CampaignAbandonedCart,
			Status:      domain.CampaignActive,
			Audience:    domain.AudienceCustomers,
			CustomerIDs: []string{"cust-003"},
			Content: domain.CampaignContent{
				Subject: "You left something in your cart!",
				Body:    "We noticed you left some items in your cart. Come back and complete your purchase!",
				CTAText: "Complete Purchase",
				CTAURL:  "https://ecomsimulate.shop/cart",
			},
			DiscountCodeID: "discount-003",
			Stats:          domain.CampaignStats{Sent: 120, Opened: 80, Clicked: 40, Converted: 20, Revenue: decimal.NewFromInt(1800)},
			CreatedAt:      seedTime("2023-02-01T00:00:00Z"),
			UpdatedAt:      seedTime("2023-03-05T00:00:00Z"),
		},
	}
}

// SeedStore loads default settings, demo discount codes and campaigns
func SeedStore(ctx context.Context, repos *repository.Repositories) error {
	if err := repos.Settings.Save(ctx, DefaultSettings()); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	for _, dc := range DemoDiscountCodes() {
		if err := repos.Discounts.Save(ctx, dc); err != nil {
			return fmt.Errorf("failed to seed discount %s: %w", dc.Code, err)
		}
	}
	for _, c := range DemoCampaigns() {
		if err := repos.Campaigns.Save(ctx, c); err != nil {
			return fmt.Errorf("failed to seed campaign %s: %w", c.ID, err)
		}
	}
	return nil
}
