package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository/memory"
	"github.com/jafarshop/dropsim/pkg/errors"
)

func newsletter() CreateCampaignRequest {
	return CreateCampaignRequest{
		Name:    "Autumn Newsletter",
		Type:    domain.CampaignEmail,
		Content: domain.CampaignContent{Subject: "New arrivals", Body: "Fresh stock just landed."},
	}
}

func TestCreateCampaignDefaults(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Campaigns.CreateCampaign(f.ctx, newsletter())
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != domain.CampaignDraft || c.Audience != domain.AudienceAll {
		t.Fatalf("expected draft campaign for everyone, got %s/%s", c.Status, c.Audience)
	}
	if c.Stats.Sent != 0 || !c.Stats.Revenue.IsZero() || c.SentDate != nil {
		t.Fatalf("expected zeroed stats, got %+v", c.Stats)
	}
	if !c.CreatedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected created at %s", c.CreatedAt)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		modify func(*CreateCampaignRequest)
	}{
		{"missing name", func(r *CreateCampaignRequest) { r.Name = " " }},
		{"unknown type", func(r *CreateCampaignRequest) { r.Type = "fax" }},
		{"missing body", func(r *CreateCampaignRequest) { r.Content.Body = "" }},
		{"customers without ids", func(r *CreateCampaignRequest) { r.Audience = domain.AudienceCustomers }},
		{"scheduled without date", func(r *CreateCampaignRequest) { r.Status = domain.CampaignScheduled }},
		{"created completed", func(r *CreateCampaignRequest) { r.Status = domain.CampaignCompleted }},
		{"unknown discount", func(r *CreateCampaignRequest) { r.DiscountCodeID = "discount-999" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newsletter()
			tt.modify(&req)
			if _, err := f.svc.Campaigns.CreateCampaign(f.ctx, req); !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	req := newsletter()
	req.DiscountCodeID = "discount-001"
	if _, err := f.svc.Campaigns.CreateCampaign(f.ctx, req); err != nil {
		t.Fatalf("existing discount must be accepted: %v", err)
	}
}

func TestExecuteCampaignForCustomers(t *testing.T) {
	f := newFixture(t)
	req := newsletter()
	req.Audience = domain.AudienceCustomers
	for i := 0; i < 40; i++ {
		req.CustomerIDs = append(req.CustomerIDs, fmt.Sprintf("cust-%03d", i))
	}
	// duplicates are collapsed
	req.CustomerIDs = append(req.CustomerIDs, "cust-000", "cust-001")
	c, err := f.svc.Campaigns.CreateCampaign(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.CustomerIDs) != 40 {
		t.Fatalf("expected 40 distinct customers, got %d", len(c.CustomerIDs))
	}

	f.clock.Advance(time.Hour)
	sent, err := f.svc.Campaigns.ExecuteCampaign(f.ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sent.Status != domain.CampaignCompleted || sent.SentDate == nil || !sent.SentDate.Equal(f.clock.Now()) {
		t.Fatalf("expected completed campaign sent now, got %s at %v", sent.Status, sent.SentDate)
	}
	want := domain.CampaignStats{Sent: 40, Opened: 24, Clicked: 8, Converted: 2}
	if sent.Stats.Sent != want.Sent || sent.Stats.Opened != want.Opened ||
		sent.Stats.Clicked != want.Clicked || sent.Stats.Converted != want.Converted {
		t.Fatalf("unexpected stats %+v", sent.Stats)
	}
	// no orders yet, so conversions are priced at the default order value
	if !sent.Stats.Revenue.Equal(d("100")) {
		t.Fatalf("expected revenue 100, got %s", sent.Stats.Revenue)
	}

	if _, err := f.svc.Campaigns.ExecuteCampaign(f.ctx, c.ID); !errors.IsInvalidState(err) {
		t.Fatalf("a campaign is sent once, got %v", err)
	}
}

func TestExecuteCampaignCountsStoreCustomers(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	orders := []*domain.Order{
		{ID: "o1", CustomerID: "cust-1", CustomerEmail: "one@example.com", Status: domain.OrderStatusCompleted, Total: d("100")},
		{ID: "o2", CustomerID: "cust-1", CustomerEmail: "one@example.com", Status: domain.OrderStatusProcessing, Total: d("300")},
		{ID: "o3", CustomerEmail: "Guest@Example.com", Status: domain.OrderStatusPending, Total: d("200")},
		{ID: "o4", CustomerID: "cust-2", Status: domain.OrderStatusCancelled, Total: d("1000")},
	}
	for _, o := range orders {
		if err := repos.Orders.Create(ctx, o); err != nil {
			t.Fatal(err)
		}
	}
	for _, cart := range []*domain.AbandonedCart{
		{ID: "cart-1", CustomerID: "cust-3", CustomerEmail: "three@example.com"},
		{ID: "cart-2", CustomerID: "cust-1", CustomerEmail: "one@example.com"},
	} {
		if err := repos.Carts.Create(ctx, cart); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewCampaignService(repos, zap.NewNop(), WithClock(func() time.Time { return now }))
	c, err := svc.CreateCampaign(ctx, newsletter())
	if err != nil {
		t.Fatal(err)
	}
	sent, err := svc.ExecuteCampaign(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	// cust-1, cust-2, cust-3 and the guest email
	if sent.Stats.Sent != 4 {
		t.Fatalf("expected 4 customers, got %d", sent.Stats.Sent)
	}
	// 5% of 4 recipients at the 200 average of non-cancelled orders
	if !sent.Stats.Revenue.Equal(d("40")) {
		t.Fatalf("expected revenue 40, got %s", sent.Stats.Revenue)
	}
}

func TestCampaignEngagement(t *testing.T) {
	tests := []struct {
		n         int
		aov       string
		opened    int
		clicked   int
		converted int
		revenue   string
	}{
		{100, "50", 60, 20, 5, "250"},
		{7, "50", 4, 1, 0, "17"},
		{0, "50", 0, 0, 0, "0"},
		{120, "89.99", 72, 24, 6, "539"},
	}
	for _, tt := range tests {
		got := CampaignEngagement(tt.n, d(tt.aov))
		if got.Sent != tt.n || got.Opened != tt.opened || got.Clicked != tt.clicked || got.Converted != tt.converted {
			t.Fatalf("n=%d: unexpected counters %+v", tt.n, got)
		}
		if !got.Revenue.Equal(d(tt.revenue)) {
			t.Fatalf("n=%d: expected revenue %s, got %s", tt.n, tt.revenue, got.Revenue)
		}
	}
}

func TestUpdateCampaignStatusRules(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Campaigns.CreateCampaign(f.ctx, newsletter())
	if err != nil {
		t.Fatal(err)
	}

	scheduled := domain.CampaignScheduled
	if _, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Status: &scheduled}); !errors.IsValidation(err) {
		t.Fatalf("scheduling needs a date, got %v", err)
	}
	when := f.clock.Now().Add(48 * time.Hour)
	name := "Autumn Newsletter #2"
	updated, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Status: &scheduled, ScheduledDate: &when, Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.CampaignScheduled || updated.Name != name || !updated.ScheduledDate.Equal(when) {
		t.Fatalf("unexpected campaign %+v", updated)
	}

	completed := domain.CampaignCompleted
	if _, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Status: &completed}); !errors.IsInvalidState(err) {
		t.Fatalf("scheduled campaigns complete by executing, got %v", err)
	}

	active := domain.CampaignActive
	if _, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Status: &active}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Campaigns.ExecuteCampaign(f.ctx, c.ID); !errors.IsInvalidState(err) {
		t.Fatalf("active campaigns cannot be executed, got %v", err)
	}
	if _, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Status: &completed}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Campaigns.UpdateCampaign(f.ctx, c.ID, UpdateCampaignRequest{Name: &name}); !errors.IsInvalidState(err) {
		t.Fatalf("completed campaigns are read-only, got %v", err)
	}
}

func TestSeededCampaigns(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.Campaigns.ListCampaigns(f.ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "campaign-002" {
		t.Fatalf("expected seeded campaigns newest first, got %d", len(list))
	}
	active, _ := f.svc.Campaigns.ListCampaigns(f.ctx, domain.CampaignActive)
	if len(active) != 2 {
		t.Fatalf("expected 2 active campaigns, got %d", len(active))
	}
	if _, err := f.svc.Campaigns.ListCampaigns(f.ctx, "paused"); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.svc.Campaigns.ExecuteCampaign(f.ctx, "campaign-001"); !errors.IsInvalidState(err) {
		t.Fatalf("expected active campaign rejected, got %v", err)
	}
	if _, err := f.svc.Campaigns.ExecuteCampaign(f.ctx, "campaign-002"); err != nil {
		t.Fatalf("scheduled campaign: %v", err)
	}

	if err := f.svc.Campaigns.DeleteCampaign(f.ctx, "campaign-003"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Campaigns.GetCampaign(f.ctx, "campaign-003"); !errors.IsNotFound(err) {
		t.Fatalf("expected deleted campaign, got %v", err)
	}
	if err := f.svc.Campaigns.DeleteCampaign(f.ctx, "campaign-003"); !errors.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
