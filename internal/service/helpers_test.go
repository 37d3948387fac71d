package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/internal/repository/memory"
	"github.com/jafarshop/dropsim/internal/supplier"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	ctx   context.Context
	repos *repository.Repositories
	sim   *supplier.Simulator
	clock *testClock
	svc   *Services
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewRepositories()
	if err := supplier.Seed(ctx, repos); err != nil {
		t.Fatalf("seed suppliers: %v", err)
	}
	if err := SeedStore(ctx, repos); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	clock := &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	sim := supplier.NewSimulator(repos, zap.NewNop(), supplier.WithClock(clock.Now))
	return newFixtureWithGateway(t, ctx, repos, clock, sim, opts...)
}

func newFixtureWithGateway(
	t *testing.T,
	ctx context.Context,
	repos *repository.Repositories,
	clock *testClock,
	gateway supplier.Gateway,
	opts ...Option,
) *fixture {
	t.Helper()
	sim, _ := gateway.(*supplier.Simulator)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc := New(Deps{Repos: repos, Gateway: gateway, Logger: zap.NewNop()}, opts...)
	return &fixture{ctx: ctx, repos: repos, sim: sim, clock: clock, svc: svc}
}

func (f *fixture) importProduct(t *testing.T, supplierID, productID string) *domain.StoreProduct {
	t.Helper()
	p, err := f.svc.Catalog.ImportProductFromSupplier(f.ctx, supplierID, productID, ImportOverrides{})
	if err != nil {
		t.Fatalf("import %s: %v", productID, err)
	}
	return p
}

func (f *fixture) setAutoAccept(t *testing.T, on bool) {
	t.Helper()
	settings, err := f.svc.Settings.Get(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	automation := settings.Automation
	automation.AutoAcceptOrders = on
	if _, err := f.svc.Settings.UpdateAutomation(f.ctx, automation); err != nil {
		t.Fatal(err)
	}
}

func variantBySupplierID(t *testing.T, p *domain.StoreProduct, supplierVariantID string) domain.StoreProductVariant {
	t.Helper()
	for _, v := range p.Variants {
		if v.SupplierVariantID == supplierVariantID {
			return v
		}
	}
	t.Fatalf("variant %s not found on %s", supplierVariantID, p.ID)
	return domain.StoreProductVariant{}
}

func usAddress() domain.Address {
	return domain.Address{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: "1 Analytical Way",
		City:         "Boston",
		PostalCode:   "02110",
		Country:      "US",
	}
}
