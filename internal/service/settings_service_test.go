package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository/memory"
	"github.com/jafarshop/dropsim/pkg/errors"
)

func TestSettingsGetCreatesDefaults(t *testing.T) {
	repos := memory.NewRepositories()
	svc := NewSettingsService(repos, zap.NewNop())

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if settings.ID != SettingsID || settings.Currency != "USD" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if !settings.Markup.DefaultMarkupPercentage.Equal(d("50")) || !settings.Automation.AutoAcceptOrders {
		t.Fatalf("unexpected defaults %+v", settings)
	}
	if _, err := repos.Settings.Get(context.Background(), SettingsID); err != nil {
		t.Fatalf("defaults not persisted: %v", err)
	}
}

func TestUpdateMarkupValidates(t *testing.T) {
	svc := NewSettingsService(memory.NewRepositories(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateMarkup(ctx, domain.MarkupSettings{
		DefaultMarkupPercentage: d("30"),
		CategoryMarkups:         map[string]decimal.Decimal{"Kitchen": d("-1")},
	})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, err := svc.UpdateMarkup(ctx, domain.MarkupSettings{DefaultMarkupPercentage: d("30")})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Markup.DefaultMarkupPercentage.Equal(d("30")) || len(updated.Markup.CategoryMarkups) != 0 {
		t.Fatalf("markup not replaced: %+v", updated.Markup)
	}
}

func TestUpdateTaxAndAutomationValidate(t *testing.T) {
	svc := NewSettingsService(memory.NewRepositories(), zap.NewNop())
	ctx := context.Background()

	if _, err := svc.UpdateTax(ctx, domain.TaxSettings{ApplyTax: true, TaxRate: d("101")}); !errors.IsValidation(err) {
		t.Fatalf("expected validation error for tax rate, got %v", err)
	}
	if _, err := svc.UpdateAutomation(ctx, domain.AutomationSettings{LowStockThreshold: -1}); !errors.IsValidation(err) {
		t.Fatalf("expected validation error for threshold, got %v", err)
	}

	updated, err := svc.UpdateTax(ctx, domain.TaxSettings{ApplyTax: true, TaxRate: d("8.25")})
	if err != nil || !updated.Tax.ApplyTax || !updated.Tax.TaxRate.Equal(d("8.25")) {
		t.Fatalf("tax not updated: %+v %v", updated, err)
	}
}
