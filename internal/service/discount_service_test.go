package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/pkg/errors"
)

func springFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.clock.Set(time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC))
	return f
}

func TestValidateDiscount(t *testing.T) {
	f := springFixture(t)

	tests := []struct {
		name       string
		req        DiscountRequest
		wantValid  bool
		wantReason string
	}{
		{"below minimum", DiscountRequest{Code: "SPRING30", OrderTotal: d("50")}, false, "This discount requires a minimum order of $100.00."},
		{"valid", DiscountRequest{Code: "SPRING30", OrderTotal: d("200")}, true, ""},
		{"case insensitive", DiscountRequest{Code: "spring30", OrderTotal: d("200")}, true, ""},
		{"unknown", DiscountRequest{Code: "NOPE", OrderTotal: d("200")}, false, reasonInvalidCode},
		{"free shipping below minimum", DiscountRequest{Code: "FREESHIP", OrderTotal: d("74.99")}, false, "This discount requires a minimum order of $75.00."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Discounts.Validate(f.ctx, tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if res.Valid != tt.wantValid || res.Reason != tt.wantReason {
				t.Fatalf("got valid=%v reason=%q, want valid=%v reason=%q", res.Valid, res.Reason, tt.wantValid, tt.wantReason)
			}
		})
	}
}

func TestValidateDiscountDates(t *testing.T) {
	f := newFixture(t)

	f.clock.Set(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	res, _ := f.svc.Discounts.Validate(f.ctx, DiscountRequest{Code: "SPRING30", OrderTotal: d("200")})
	if res.Valid || res.Reason != reasonExpired {
		t.Fatalf("expected expired, got %+v", res)
	}

	f.clock.Set(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))
	res, _ = f.svc.Discounts.Validate(f.ctx, DiscountRequest{Code: "SPRING30", OrderTotal: d("200")})
	if res.Valid || res.Reason != "This discount code is not valid until 2023-03-01." {
		t.Fatalf("expected not yet valid, got %+v", res)
	}

	// the last second of the end date still counts
	f.clock.Set(time.Date(2023, 5, 31, 23, 59, 59, 0, time.UTC))
	res, _ = f.svc.Discounts.Validate(f.ctx, DiscountRequest{Code: "SPRING30", OrderTotal: d("200")})
	if !res.Valid {
		t.Fatalf("expected valid at end date, got %+v", res)
	}
}

func TestApplyDiscountRecordsUsage(t *testing.T) {
	f := springFixture(t)

	res, err := f.svc.Discounts.Apply(f.ctx, DiscountRequest{Code: "SPRING30", OrderTotal: d("200"), CustomerID: "cust-1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount.String() != "60.00" || res.DiscountedTotal.String() != "140.00" {
		t.Fatalf("unexpected amounts %s / %s", res.DiscountAmount, res.DiscountedTotal)
	}

	dc, _ := f.repos.Discounts.Get(f.ctx, "discount-002")
	if dc.UsageCount != 221 || dc.CustomerUsage["cust-1"] != 1 {
		t.Fatalf("expected usage 221 and customer usage 1, got %d / %d", dc.UsageCount, dc.CustomerUsage["cust-1"])
	}

	_, err = f.svc.Discounts.Apply(f.ctx, DiscountRequest{Code: "SPRING30", OrderTotal: d("50")})
	rejected, ok := errors.AsDiscountRejected(err)
	if !ok || rejected.Code != "SPRING30" {
		t.Fatalf("expected rejection, got %v", err)
	}
	dc, _ = f.repos.Discounts.Get(f.ctx, "discount-002")
	if dc.UsageCount != 221 {
		t.Fatalf("rejected apply must not count, usage is %d", dc.UsageCount)
	}
}

func TestApplyDiscountCustomerLimit(t *testing.T) {
	f := springFixture(t)
	req := DiscountRequest{Code: "WELCOME10", OrderTotal: d("80"), CustomerID: "cust-7"}

	res, err := f.svc.Discounts.Apply(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.DiscountAmount.String() != "8.00" {
		t.Fatalf("unexpected discount %s", res.DiscountAmount)
	}

	_, err = f.svc.Discounts.Apply(f.ctx, req)
	if rejected, ok := errors.AsDiscountRejected(err); !ok || rejected.Reason != reasonCustomerLimit {
		t.Fatalf("expected customer limit, got %v", err)
	}

	// another customer is unaffected
	req.CustomerID = "cust-8"
	if _, err := f.svc.Discounts.Apply(f.ctx, req); err != nil {
		t.Fatalf("other customer: %v", err)
	}
}

func TestApplyDiscountConcurrentLastRedemption(t *testing.T) {
	f := springFixture(t)
	dc, err := f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{
		Code:       "LASTONE",
		Type:       domain.DiscountFixed,
		Value:      d("5"),
		UsageLimit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Discounts.Apply(f.ctx, DiscountRequest{Code: "lastone", OrderTotal: d("30")}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one redemption, got %d", wins.Load())
	}
	got, _ := f.repos.Discounts.Get(f.ctx, dc.ID)
	if got.UsageCount != 1 {
		t.Fatalf("usage count exceeded limit: %d", got.UsageCount)
	}
}

func TestDiscountExclusionsAndScope(t *testing.T) {
	f := springFixture(t)
	phone := f.importProduct(t, "sup-001", "prod-001")
	jacket := f.importProduct(t, "sup-002", "prod-003")

	if _, err := f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{
		Code:               "NOPHONES",
		Type:               domain.DiscountPercentage,
		Value:              d("15"),
		ExcludedProductIDs: []string{phone.ID},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{
		Code:      "COATS",
		Type:      domain.DiscountPercentage,
		Value:     d("20"),
		AppliesTo: domain.ScopeCollections,
		TargetIDs: []string{"Outerwear"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{
		Code:      "JACKETONLY",
		Type:      domain.DiscountFixed,
		Value:     d("10"),
		AppliesTo: domain.ScopeProducts,
		TargetIDs: []string{jacket.ID},
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		code       string
		products   []string
		wantReason string
	}{
		{"only excluded products", "NOPHONES", []string{phone.ID}, reasonAllExcluded},
		{"empty cart with exclusions", "NOPHONES", nil, reasonAllExcluded},
		{"mixed cart", "NOPHONES", []string{phone.ID, jacket.ID}, ""},
		{"collection match", "COATS", []string{jacket.ID}, ""},
		{"collection miss", "COATS", []string{phone.ID}, reasonNoTargetProduct},
		{"product match", "JACKETONLY", []string{phone.ID, jacket.ID}, ""},
		{"product miss", "JACKETONLY", []string{phone.ID}, reasonNoTargetProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Discounts.Validate(f.ctx, DiscountRequest{Code: tt.code, OrderTotal: d("100"), ProductIDs: tt.products})
			if err != nil {
				t.Fatal(err)
			}
			if res.Reason != tt.wantReason || res.Valid != (tt.wantReason == "") {
				t.Fatalf("got %+v, want reason %q", res, tt.wantReason)
			}
		})
	}
}

func TestDiscountAmountNeverExceedsTotal(t *testing.T) {
	tests := []struct {
		name  string
		dc    domain.DiscountCode
		total string
		want  string
	}{
		{"percentage", domain.DiscountCode{Type: domain.DiscountPercentage, Value: d("25")}, "80", "20"},
		{"fixed capped", domain.DiscountCode{Type: domain.DiscountFixed, Value: d("50")}, "30", "30"},
		{"free shipping capped", domain.DiscountCode{Type: domain.DiscountFreeShipping, Value: d("15")}, "9.99", "9.99"},
		{"fixed", domain.DiscountCode{Type: domain.DiscountFixed, Value: d("5")}, "30", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountAmount(&tt.dc, d(tt.total))
			if !got.Equal(d(tt.want)) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateDiscountRejectsDuplicateIgnoringCase(t *testing.T) {
	f := springFixture(t)
	_, err := f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{Code: "welcome10", Type: domain.DiscountFixed, Value: d("5")})
	if !errors.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = f.svc.Discounts.Create(f.ctx, CreateDiscountRequest{Code: "BIG", Type: domain.DiscountPercentage, Value: d("120")})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error for percentage over 100, got %v", err)
	}
}

func TestDeactivatedDiscountIsRejected(t *testing.T) {
	f := springFixture(t)
	if _, err := f.svc.Discounts.Deactivate(f.ctx, "discount-001"); err != nil {
		t.Fatal(err)
	}
	res, _ := f.svc.Discounts.Validate(f.ctx, DiscountRequest{Code: "WELCOME10", OrderTotal: d("50")})
	if res.Valid || res.Reason != reasonInactive {
		t.Fatalf("expected inactive, got %+v", res)
	}

	codes, _ := f.svc.Discounts.List(f.ctx)
	if len(codes) != 3 || codes[0].Code != "FREESHIP" {
		t.Fatalf("expected codes sorted by code, got %d", len(codes))
	}
}
